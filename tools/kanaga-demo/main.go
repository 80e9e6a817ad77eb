// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command kanaga-demo loads a flat sales CSV export into an in-memory
// knowledge graph, runs the reasoning rules, and answers the canned insight
// queries or ad-hoc fact queries from the command line.
package main

import (
	"fmt"
	"os"
	"strconv"

	docopt "github.com/docopt/docopt-go"
	"github.com/ebay/kanaga/config"
	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/infer"
	"github.com/ebay/kanaga/load"
	"github.com/ebay/kanaga/query"
	"github.com/ebay/kanaga/query/exec"
	"github.com/ebay/kanaga/query/parser"
	"github.com/ebay/kanaga/sales"
	"github.com/ebay/kanaga/util/debuglog"
	"github.com/ebay/kanaga/util/table"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var fmtr = message.NewPrinter(language.English)

const usage = `kanaga-demo loads a sales CSV into an in-memory knowledge graph and
queries it.

Usage:
  kanaga-demo [-v --config=FILE --limit=NUM] insights CSVFILE
  kanaga-demo [-v --config=FILE] classified CSVFILE CLASS
  kanaga-demo [-v --config=FILE --noextids] queryfacts CSVFILE QUERYSTRING

Options:
  --config=FILE    Domain configuration JSON; the built-in sales domain is
                   used when omitted.
  --limit=NUM      Number of products in the top-products insight [default: 5]
  --noextids       Don't resolve KIDs to external IDs in query results.
  -v               Verbose logging.

Examples:
  # The standard insight reports.
  kanaga-demo insights data/sales_data.csv

  # Which customers did the reasoning rules classify as high value?
  kanaga-demo classified data/sales_data.csv HighValueCustomer

  # All sales to customer C001.
  kanaga-demo queryfacts data/sales_data.csv "?sale <soldTo> <C001>"
`

type options struct {
	ConfigFile           string `docopt:"--config"`
	LimitString          string `docopt:"--limit"`
	Limit                uint64
	NoResolveExternalIDs bool `docopt:"--noextids"`
	Verbose              bool `docopt:"-v"`

	CSVFile     string `docopt:"CSVFILE"`
	Class       string `docopt:"CLASS"`
	QueryString string `docopt:"QUERYSTRING"`

	Insights   bool `docopt:"insights"`
	Classified bool `docopt:"classified"`
	QueryFacts bool `docopt:"queryfacts"`
}

func parseArgs() *options {
	opts, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("Error parsing command-line arguments: %v", err)
	}
	var options options
	err = opts.Bind(&options)
	if err != nil {
		log.Fatalf("Error binding command-line arguments: %v\nfrom: %+v", err, opts)
	}
	options.Limit, err = strconv.ParseUint(options.LimitString, 10, 64)
	if err != nil {
		log.Fatalf("Unable to parse limit value: %v", err)
	}
	return &options
}

func main() {
	debuglog.Configure(debuglog.Options{})
	options := parseArgs()
	if !options.Verbose {
		log.SetLevel(log.WarnLevel)
	}

	spec := sales.Spec()
	if options.ConfigFile != "" {
		var err error
		spec, err = config.Load(options.ConfigFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}
	sys, err := spec.Build()
	if err != nil {
		log.Fatalf("Error building domain: %v", err)
	}
	if sys.Mapping == nil {
		log.Fatalf("Config declares no record mapping; nothing to load")
	}

	store := facts.NewStore(sys.Registry)
	rows, err := readRows(options.CSVFile)
	if err != nil {
		log.Fatalf("Error reading %v: %v", options.CSVFile, err)
	}
	report, err := load.Load(store, sys.Mapping, rows)
	if err != nil {
		log.Fatalf("Error loading %v: %v", options.CSVFile, err)
	}
	derived, err := infer.Run(store, sys.Rules)
	if err != nil {
		log.Fatalf("Error running reasoning rules: %v", err)
	}
	fmtr.Printf("Loaded %d rows (%d skipped): %d entities, %d facts, %d derived\n\n",
		report.RowsLoaded, len(report.Skipped), report.EntitiesCreated,
		report.FactsAsserted, derived)

	switch {
	case options.Insights:
		insights(store, options.Limit)
	case options.Classified:
		err := printQuery(store, sales.Classified(options.Class), true)
		if err != nil {
			log.Fatalf("Error evaluating query: %v", err)
		}
	case options.QueryFacts:
		q, err := parser.Parse(options.QueryString)
		if err != nil {
			log.Fatalf("Error parsing query: %v", err)
		}
		err = printQuery(store, q, !options.NoResolveExternalIDs)
		if err != nil {
			log.Fatalf("Error evaluating query: %v", err)
		}
	default:
		log.Fatalf("command not implemented")
	}
}

// insights runs the standard insight reports and prints each as a table.
func insights(store *facts.Store, limit uint64) {
	reports := []struct {
		title string
		query *query.Query
	}{
		{"Revenue by region", sales.RevenueByRegion()},
		{fmtr.Sprintf("Top %d products by revenue", limit), sales.TopProducts(limit)},
		{"Revenue by customer type", sales.RevenueByCustomerType()},
		{"Sales rep effectiveness", sales.RepEffectiveness()},
		{"Discount patterns", sales.DiscountPatterns()},
	}
	for _, r := range reports {
		fmtr.Printf("%s\n", r.title)
		err := printQuery(store, r.query, true)
		if err != nil {
			log.Fatalf("Error evaluating %q: %v", r.title, err)
		}
	}
}

// printQuery evaluates the query and prints the result set as a table,
// optionally resolving entity KIDs to their external IDs.
func printQuery(store *facts.Store, q *query.Query, resolve bool) error {
	rs, err := exec.Evaluate(store, q)
	if err != nil {
		return err
	}
	printResult(store, rs, resolve)
	return nil
}

// cellText renders one result value for display.
func cellText(store *facts.Store, v facts.KGObject, resolve bool) string {
	switch v.ValueType() {
	case facts.KtNil:
		return ""
	case facts.KtKID:
		if resolve {
			if extID := store.ExternalID(v.ValKID()); extID != "" {
				return extID
			}
		}
		return fmt.Sprintf("#%d", v.ValKID())
	case facts.KtInt64:
		return fmtr.Sprintf("%d", v.ValInt64())
	case facts.KtFloat64:
		return fmtr.Sprintf("%.2f", v.ValFloat64())
	}
	return v.String()
}

// printResult writes the result set as an aligned table.
func printResult(store *facts.Store, rs *exec.ResultSet, resolve bool) {
	t := make([][]string, 0, rs.NumRows()+1)
	t = append(t, rs.Columns)
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(store, v, resolve)
		}
		t = append(t, cells)
	}
	table.PrettyPrint(os.Stdout, t, table.HeaderRow)
	fmtr.Printf("%d result rows\n\n", rs.NumRows())
}
