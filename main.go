// Command blockidx manages a single-file, block-structured B-tree index of
// uint64 keys and values.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/btree-query-bench/blockidx/dbms/indexfile"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
)

const usage = `Usage:
  blockidx [-v] [-no-color] <command> [arguments]

Commands:
  create  <file>                 create an empty index file
  insert  <file> <key> <value>   insert or update one entry
  search  <file> <key>           look up a key
  load    <file> <csv>           insert every key,value line of a CSV file
  print   <file>                 print all entries in key order
  extract <file> <csv>           write all entries to a new CSV file
  dot     <file> <out.dot>       write a Graphviz rendering of the tree
  check   <file>                 verify the tree's structure
  seed    [-n N] [-max-key K] <csv>
  bench   [-n N] [-dir D] [-out results.csv]

CSV files ending in .sz are snappy-compressed.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries the output streams and options shared by every command.
type cli struct {
	stdout, stderr io.Writer
	opts           *indexfile.Options

	ok, warn, fail *color.Color
}

type command struct {
	args int // required positional arguments, -1 if the command parses its own
	run  func(c *cli, args []string) error
}

var commands = map[string]command{
	"create":  {1, (*cli).create},
	"insert":  {3, (*cli).insert},
	"search":  {2, (*cli).search},
	"load":    {2, (*cli).load},
	"print":   {1, (*cli).print},
	"extract": {2, (*cli).extract},
	"dot":     {2, (*cli).dot},
	"check":   {1, (*cli).check},
	"seed":    {-1, (*cli).seed},
	"bench":   {-1, (*cli).bench},
}

// errUsage makes run print the usage text.
var errUsage = errors.New("usage")

// run executes one command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("blockidx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Log node and root splits to stderr.")
	noColor := fs.Bool("no-color", false, "Disable colored output.")
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 1
	}

	c := &cli{
		stdout: stdout,
		stderr: stderr,
		opts:   &indexfile.Options{},
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed),
	}
	if *noColor {
		for _, col := range []*color.Color{c.ok, c.warn, c.fail} {
			col.DisableColor()
		}
	}
	if *verbose {
		c.opts.Logf = log.New(stderr, "", log.Ltime|log.Lmicroseconds).Printf
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 1
	}
	cmd, found := commands[rest[0]]
	if !found {
		c.fail.Fprintf(stderr, "unknown command %q\n", rest[0])
		fs.Usage()
		return 1
	}
	if cmd.args >= 0 && len(rest)-1 != cmd.args {
		fs.Usage()
		return 1
	}
	if err := cmd.run(c, rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
		} else {
			c.fail.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Newf("invalid %s %q: must be an unsigned 64-bit integer", name, s)
	}
	return v, nil
}

// ─── Commands ─────────────────────────────────────────────────────────────────

func (c *cli) create(args []string) error {
	if err := indexfile.Create(args[0], c.opts); err != nil {
		if errors.Is(err, indexfile.ErrAlreadyExists) {
			return errors.Newf("file %q already exists", args[0])
		}
		return err
	}
	c.ok.Fprintf(c.stdout, "created index file %q\n", args[0])
	return nil
}

func (c *cli) insert(args []string) error {
	key, err := parseUint("key", args[1])
	if err != nil {
		return err
	}
	value, err := parseUint("value", args[2])
	if err != nil {
		return err
	}
	res, err := indexfile.Insert(args[0], key, value, c.opts)
	if err != nil {
		return err
	}
	verb := "inserted"
	if res.Replaced {
		verb = "updated"
	}
	c.ok.Fprintf(c.stdout, "%s key=%d value=%d in block %d\n", verb, key, value, res.Block)
	return nil
}

func (c *cli) search(args []string) error {
	key, err := parseUint("key", args[1])
	if err != nil {
		return err
	}
	value, found, err := indexfile.Search(args[0], key)
	if err != nil {
		return err
	}
	if !found {
		c.warn.Fprintf(c.stdout, "key=%d not found\n", key)
		return nil
	}
	fmt.Fprintf(c.stdout, "%d=%d\n", key, value)
	return nil
}

func (c *cli) load(args []string) error {
	rep, err := indexfile.LoadFile(args[0], args[1], c.opts)
	for _, lerr := range rep.Skipped {
		c.warn.Fprintf(c.stderr, "skipped %v\n", lerr)
	}
	if err != nil {
		return err
	}
	c.ok.Fprintf(c.stdout, "loaded %d new and %d updated entries from %q (%d lines skipped)\n",
		rep.Inserted, rep.Replaced, args[1], len(rep.Skipped))
	return nil
}

func (c *cli) print(args []string) error {
	pairs, err := indexfile.Export(args[0])
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		c.warn.Fprintln(c.stdout, "tree is empty")
		return nil
	}
	for _, p := range pairs {
		fmt.Fprintf(c.stdout, "%d=%d\n", p.Key, p.Value)
	}
	return nil
}

func (c *cli) extract(args []string) error {
	n, err := indexfile.ExtractFile(args[0], args[1])
	if err != nil {
		if errors.Is(err, indexfile.ErrAlreadyExists) {
			return errors.Newf("output file %q already exists", args[1])
		}
		return err
	}
	c.ok.Fprintf(c.stdout, "extracted %d entries to %q\n", n, args[1])
	return nil
}

func (c *cli) dot(args []string) (err error) {
	f, err := os.OpenFile(args[1], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, f.Close())
	}()
	if err := indexfile.WriteDOT(args[0], f); err != nil {
		return err
	}
	c.ok.Fprintf(c.stdout, "wrote %q\n", args[1])
	return nil
}

func (c *cli) check(args []string) error {
	st, err := indexfile.Check(args[0])
	if err != nil {
		return err
	}
	c.ok.Fprintf(c.stdout, "ok: height %d, %d nodes (%d leaves), %d keys, next block %d\n",
		st.Height, st.Nodes, st.Leaves, st.Keys, st.NextBlock)
	return nil
}
