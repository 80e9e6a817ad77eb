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

package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/cheggaaa/pb"
	"github.com/ebay/kanaga/load"
)

// readRows reads a CSV file with a header row into loader rows, one map per
// record keyed by column name.
func readRows(path string) ([]load.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%v contains no header row", path)
	}
	header := records[0]
	records = records[1:]

	bar := pb.New(len(records)).Prefix("Reading rows ")
	bar.Start()
	rows := make([]load.Row, len(records))
	for i, record := range records {
		row := make(load.Row, len(header))
		for j, col := range header {
			row[col] = record[j]
		}
		rows[i] = row
		bar.Increment()
	}
	bar.Finish()
	return rows, nil
}
