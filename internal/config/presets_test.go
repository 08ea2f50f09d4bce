package config_test

import (
	"testing"

	"github.com/paveg/movers/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetNames(t *testing.T) {
	assert.Equal(t, []string{
		config.PresetCategoryAverageSales,
		config.PresetWeekdayFootTraffic,
		config.PresetWeekdaySales,
	}, config.PresetNames())
}

func TestPresets(t *testing.T) {
	for _, name := range config.PresetNames() {
		t.Run(name, func(t *testing.T) {
			job, err := config.Preset(name)
			require.NoError(t, err)
			require.NoError(t, job.Validate())

			assert.Equal(t, name, job.Name)
			assert.Equal(t, config.QuarterField, job.PeriodField)
			assert.Equal(t, "20233", job.Baseline)
			assert.Equal(t, "20234", job.Current)
			assert.Equal(t, []string{config.DistrictField, config.SubdistrictField}, job.GroupBy)
			assert.Equal(t, 10, job.Limit)
			assert.NotEmpty(t, job.Output.Path)
		})
	}

	t.Run("weekday sales columns", func(t *testing.T) {
		job, _ := config.Preset(config.PresetWeekdaySales)
		require.Len(t, job.Unpivot, 7)
		assert.Equal(t, "월요일", job.Unpivot[0].Label)
		assert.Equal(t, "월요일_매출_금액", job.Unpivot[0].Column)
		assert.Equal(t, "{axis}_변화량", job.Output.ChangeField)
	})

	t.Run("category average uses a ratio", func(t *testing.T) {
		job, _ := config.Preset(config.PresetCategoryAverageSales)
		require.NotNil(t, job.Ratio)
		assert.Equal(t, config.MonthlySalesField, job.Ratio.Numerator)
		assert.Equal(t, config.StoreCountField, job.Ratio.Denominator)
		assert.True(t, job.SortAxis)
		require.NotNil(t, job.Output.LatestPrecision)
		assert.Equal(t, 0, *job.Output.LatestPrecision)
	})

	t.Run("presets are independent copies", func(t *testing.T) {
		a, _ := config.Preset(config.PresetWeekdaySales)
		a.GroupBy[0] = "mutated"
		b, _ := config.Preset(config.PresetWeekdaySales)
		assert.Equal(t, config.DistrictField, b.GroupBy[0])
	})

	t.Run("unknown preset", func(t *testing.T) {
		_, err := config.Preset("hourly")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown preset")
	})
}
