package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/clusterkit/kmeans/pkg/vector"
)

// jsonlRow is one line of the input file: an optional stable id and a
// dense coordinate vector.
type jsonlRow struct {
	ID     *int64    `json:"id,omitempty"`
	Values []float64 `json:"values"`
}

// loadPointsFromFile reads newline-delimited JSON rows into sparse
// vectors and their (possibly absent) ids.
func loadPointsFromFile(path string) ([]vector.Sparse, []int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var coords []vector.Sparse
	var ids []int64
	haveIDs := false

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var row jsonlRow
		if err := json.Unmarshal(line, &row); err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping malformed line %d: %v\n", lineNum, err)
			continue
		}
		if len(row.Values) == 0 {
			continue
		}

		coords = append(coords, vector.FromDense(row.Values))
		if row.ID != nil {
			haveIDs = true
			ids = append(ids, *row.ID)
		} else {
			ids = append(ids, 0)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if !haveIDs {
		return coords, nil, nil
	}
	return coords, ids, nil
}
