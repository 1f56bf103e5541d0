package main

import (
	"flag"
	"fmt"
)

type monitorsCmd struct {
	*root
	fs *flag.FlagSet
}

func (c *monitorsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseMonitorsCmd(args []string, r *root) (*monitorsCmd, error) {
	fs := flag.NewFlagSet("monitors", flag.ExitOnError)
	cmd := &monitorsCmd{root: r.subcommand("monitors"), fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *monitorsCmd) Run() error {
	mons, err := listMonitorsFn()
	if err != nil {
		return err
	}
	if len(mons) == 0 {
		fmt.Fprintln(c.stdout, "no monitors available")
		return nil
	}
	fmt.Fprintln(c.stdout, "available monitors:")
	for _, m := range mons {
		fmt.Fprintf(c.stdout, "  %s  aspect %.3f\n", m, m.Aspect())
	}
	fmt.Fprintln(c.stdout, "selectors: index, #index, primary, substring of the name")
	return nil
}
