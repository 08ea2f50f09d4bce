package config

import (
	"fmt"
	"slices"

	"github.com/paveg/movers/internal/ranking"
	"github.com/paveg/movers/internal/table"
)

// Column names of the Seoul commercial-district survey exports
const (
	DistrictField      = "자치구_코드_명"
	SubdistrictField   = "행정동_코드_명"
	QuarterField       = "기준_년분기_코드"
	CategoryField      = "category20"
	MonthlySalesField  = "당월_매출_금액"
	StoreCountField    = "점포_수"
	WeekdayAxisField   = "요일"
	DefaultBaseline    = "20233"
	DefaultCurrent     = "20234"
	WeekdaySalesMetric = "매출_금액"
	FootTrafficMetric  = "유동인구_수"
	AverageSalesMetric = "평균_매출"
)

// Preset names
const (
	PresetWeekdaySales         = "weekday-sales"
	PresetWeekdayFootTraffic   = "weekday-foot-traffic"
	PresetCategoryAverageSales = "category-average-sales"
)

var weekdays = []string{"월", "화", "수", "목", "금", "토", "일"}

type presetFunc func() Job

var presets = map[string]presetFunc{
	PresetWeekdaySales:         weekdaySales,
	PresetWeekdayFootTraffic:   weekdayFootTraffic,
	PresetCategoryAverageSales: categoryAverageSales,
}

// PresetNames lists the built-in jobs in name order
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Preset returns a built-in job comparing quarter 20233 with 20234
func Preset(name string) (Job, error) {
	build, ok := presets[name]
	if !ok {
		return Job{}, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	return build(), nil
}

func surveyJob(name, source, output string) Job {
	return Job{
		Name:        name,
		Source:      Source{Path: source, Format: FormatCSV},
		PeriodField: QuarterField,
		Baseline:    DefaultBaseline,
		Current:     DefaultCurrent,
		GroupBy:     []string{DistrictField, SubdistrictField},
		Limit:       DefaultLimit,
		Output:      Output{Path: output},
	}
}

// weekdaySales ranks sub-districts by sales change, one ranking per weekday
func weekdaySales() Job {
	job := surveyJob(PresetWeekdaySales, "매출.csv", "매출_변화량_top10.json")
	job.Axis = WeekdayAxisField
	job.Metric = WeekdaySalesMetric
	for _, d := range weekdays {
		job.Unpivot = append(job.Unpivot, table.UnpivotColumn{
			Label:  d + "요일",
			Column: d + "요일_매출_금액",
		})
	}
	job.Output.LatestField = "{column}_{current}"
	job.Output.ChangeField = "{axis}_변화량"
	return job
}

// weekdayFootTraffic ranks sub-districts by foot-traffic change per weekday
func weekdayFootTraffic() Job {
	job := surveyJob(PresetWeekdayFootTraffic, "stay_live_work.csv", "rankings_top10.json")
	job.Axis = WeekdayAxisField
	job.Metric = FootTrafficMetric
	for _, d := range weekdays {
		job.Unpivot = append(job.Unpivot, table.UnpivotColumn{
			Label:  d,
			Column: d + "요일_유동인구_수",
		})
	}
	job.Output.LatestField = "current_population"
	job.Output.ChangeField = "change_percentage"
	return job
}

// categoryAverageSales ranks sub-districts by average sales per store, one
// ranking per business category
func categoryAverageSales() Job {
	job := surveyJob(PresetCategoryAverageSales, "매출.csv", "매출_변화량_top10_by_category.json")
	job.Axis = CategoryField
	job.SortAxis = true
	job.Metric = AverageSalesMetric
	job.Ratio = &ranking.Ratio{Numerator: MonthlySalesField, Denominator: StoreCountField}
	precision := 0
	job.Output.LatestField = AverageSalesMetric + "_{current}"
	job.Output.ChangeField = AverageSalesMetric + "_변화량"
	job.Output.LatestPrecision = &precision
	return job
}
