// Command cashcount totals a drawer of PKR notes.
//
//	cashcount 5000=3 1000=2 100=7
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"labcash/internal/core"
	"labcash/internal/finance"
)

func main() {
	all := flag.Bool("all", false, "print denominations with a zero count")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: cashcount [-all] DENOM=COUNT ...\n")
		fmt.Fprintf(os.Stderr, "denominations: %s\n", denominations())
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	counts, err := finance.ParseCounts(strings.Join(flag.Args(), " "))
	if err != nil {
		fmt.Fprintln(os.Stderr, "cashcount:", err)
		os.Exit(1)
	}
	res, err := finance.CountCash(counts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cashcount:", err)
		os.Exit(1)
	}

	for _, line := range res.Lines {
		if line.Count == 0 && !*all {
			continue
		}
		fmt.Printf("%6d x %-5d %14s\n", line.Denomination, line.Count, core.FormatPKR(line.Total))
	}
	fmt.Printf("%-14s %14s\n", "Total", core.FormatPKR(res.Total))
}

func denominations() string {
	parts := make([]string, len(finance.Denominations))
	for i, d := range finance.Denominations {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, ", ")
}
