package bench

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	pkgerrors "ecpbench/pkg/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary averages every run of one (setting, b) pair.
type Summary struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	B            int     `json:"b"`
	Runs         int     `json:"runs"`
	Recall       float64 `json:"recall"`
	RecallStdDev float64 `json:"recall_stddev"`
	QPS          float64 `json:"qps"`
	QPSStdDev    float64 `json:"qps_stddev"`
	MeanLatency  float64 `json:"mean_latency_ms"`
	BuildSeconds float64 `json:"build_seconds"`
}

// Average groups results by key and averages recall, throughput, latency and
// build time. Summaries come back ordered by label.
func Average(results []Result) []Summary {
	groups := make(map[string][]Result)
	for _, r := range results {
		groups[r.Key] = append(groups[r.Key], r)
	}

	out := make([]Summary, 0, len(groups))
	for key, rs := range groups {
		recall := make([]float64, len(rs))
		qps := make([]float64, len(rs))
		latency := make([]float64, len(rs))
		build := make([]float64, len(rs))
		for i, r := range rs {
			recall[i] = r.Recall
			qps[i] = r.QPS
			latency[i] = r.MeanLatency
			build[i] = r.BuildSeconds
		}

		s := Summary{Key: key, Label: rs[0].Label, B: rs[0].B, Runs: len(rs)}
		s.Recall, s.RecallStdDev = meanStdDev(recall)
		s.QPS, s.QPSStdDev = meanStdDev(qps)
		s.MeanLatency = floats.Sum(latency) / float64(len(rs))
		s.BuildSeconds = floats.Sum(build) / float64(len(rs))
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// meanStdDev returns a zero deviation for a single sample instead of NaN.
func meanStdDev(x []float64) (float64, float64) {
	if len(x) == 1 {
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// WriteResults writes one JSON object per line.
func WriteResults(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// ReadResults parses the output of WriteResults. Blank lines are skipped.
func ReadResults(r io.Reader) ([]Result, error) {
	var out []Result
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := sc.Bytes()
		if len(text) == 0 {
			continue
		}
		var res Result
		if err := json.Unmarshal(text, &res); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", pkgerrors.ErrMalformedInput, line, err)
		}
		out = append(out, res)
	}
	return out, sc.Err()
}

// WriteSummaries writes the averaged table as indented JSON.
func WriteSummaries(w io.Writer, summaries []Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
