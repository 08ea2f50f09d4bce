// Package digest turns rankings into the analysis data the report chat
// consumes: per entry a list of count messages and a list of trend messages.
package digest

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/paveg/movers/internal/ranking"
)

// Analysis is one entry of the chat analysis data
type Analysis struct {
	CountMessages []string `json:"countMessages"`
	TrendMessages []string `json:"trendMessages"`
}

// Data maps an entry name to its analysis
type Data map[string]Analysis

// Merge copies other's entries into d, replacing entries with the same name
func (d Data) Merge(other Data) {
	for k, v := range other {
		d[k] = v
	}
}

// Summarize describes the leader of every axis value of r. Entries are named
// "<name> <axis value>", or just name for an unkeyed ranking. Axis values
// with no ranked record are omitted.
func Summarize(name string, r *ranking.AxisRanking) Data {
	data := make(Data, r.Len())
	for _, ar := range r.Results() {
		if ar.Result.Len() == 0 {
			continue
		}
		entry := name
		if ar.Axis != "" {
			entry = name + " " + ar.Axis
		}
		data[entry] = analyze(r, ar.Result)
	}
	return data
}

func analyze(r *ranking.AxisRanking, res *ranking.RankedResult) Analysis {
	leader := res.Records[0]
	who := strings.Join(leader.Key, " ")

	counts := []string{
		fmt.Sprintf("%s의 %s %s 값은 %s입니다.", who, r.Current, r.Metric, formatNumber(leader.Current.Sum)),
	}

	trends := []string{
		fmt.Sprintf("%s의 %s은(는) %s 대비 %s", who, r.Metric, r.Baseline, describeChange(leader.Change)),
	}
	increasing := 0
	for _, rec := range res.Records {
		if rec.Change.IsPositive() {
			increasing++
		}
	}
	trends = append(trends, fmt.Sprintf("상위 %s곳 중 %s곳이 증가했습니다.",
		humanize.Comma(int64(res.Len())), humanize.Comma(int64(increasing))))

	return Analysis{CountMessages: counts, TrendMessages: trends}
}

func describeChange(change decimal.Decimal) string {
	switch change.Sign() {
	case 1:
		return change.StringFixed(2) + "% 증가했습니다."
	case -1:
		return change.Abs().StringFixed(2) + "% 감소했습니다."
	default:
		return "정체 상태입니다."
	}
}

// formatNumber renders a value with thousands separators and at most two
// decimal places.
func formatNumber(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return humanize.Commaf(f)
}
