package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"dqaudit/internal/config"
	apperrors "dqaudit/internal/errors"
	"dqaudit/internal/infrastructure"
	"dqaudit/internal/shared/testutil"
	"dqaudit/internal/tabular"
)

type AuditorTestSuite struct {
	suite.Suite
	dir     string
	logger  *slog.Logger
	capture *testutil.LogCapture
}

func (s *AuditorTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.logger, s.capture = testutil.NewTestLogger()
}

func (s *AuditorTestSuite) write(name, content string) {
	testutil.WriteFile(s.T(), s.dir, name, []byte(content))
}

func (s *AuditorTestSuite) writeWeather() {
	data := testutil.ParquetBytes(s.T(), testutil.WeatherSchema(), func(b *array.RecordBuilder) {
		b.Field(0).(*array.StringBuilder).AppendValues([]string{"s1", "s2", "s3"}, []bool{true, true, false})
		b.Field(1).(*array.Float64Builder).AppendValues([]float64{20.5, 0, 18}, []bool{true, false, true})
		b.Field(2).(*array.Int64Builder).AppendValues([]int64{40, 55, 60}, nil)
	})
	testutil.WriteFile(s.T(), s.dir, "weather_data.parquet", data)
}

func (s *AuditorTestSuite) newAuditor(opts ...Option) *Auditor {
	return NewAuditor(s.dir, append([]Option{WithLogger(s.logger)}, opts...)...)
}

func (s *AuditorTestSuite) TestCSVExample() {
	s.write("city_zones.csv", "a,b\n1,\n,2\n")

	results, err := s.newAuditor().Audit(context.Background(), DefaultDatasets())
	s.Require().NoError(err)

	s.Equal([]string{"city_zones.csv"}, results.Filenames())
	stats, ok := results.Get("city_zones.csv")
	s.Require().True(ok)
	s.Equal(2, stats.TotalRows)
	s.Equal(2, stats.TotalColumns)
	s.Equal(map[string]int{"a": 1, "b": 1}, stats.MissingByColumn())
	s.Equal(2, stats.TotalMissing)
	s.InDelta(50.0, stats.MissingPercentage, 1e-9)
}

func (s *AuditorTestSuite) TestAbsentFilesAreSkipped() {
	results, err := s.newAuditor().Audit(context.Background(), DefaultDatasets())
	s.Require().NoError(err)

	s.Equal(0, results.Len())
	s.Empty(results.Failures())
	s.Empty(results.Entries())

	rec, ok := s.capture.Find(slog.LevelDebug, "not present")
	s.Require().True(ok)
	s.Equal("auditor", rec.Attrs["component"])
}

func (s *AuditorTestSuite) TestAllFormatsInScanOrder() {
	s.write("air_quality.json", `[{"pm25": 12, "o3": null}, {"pm25": 8}]`)
	s.write("traffic_sensors.csv", "sensor,count\nt1,10\nt2,\n")
	s.write("city_zones.csv", "zone,name\n1,North\n")
	s.writeWeather()

	results, err := s.newAuditor().Audit(context.Background(), DefaultDatasets())
	s.Require().NoError(err)

	s.Equal([]string{
		"city_zones.csv",
		"traffic_sensors.csv",
		"weather_data.parquet",
		"air_quality.json",
	}, results.Filenames())

	weather, _ := results.Get("weather_data.parquet")
	s.Equal(3, weather.TotalRows)
	s.Equal(3, weather.TotalColumns)
	s.Equal(map[string]int{"station": 1, "temperature": 1, "humidity": 0}, weather.MissingByColumn())

	air, _ := results.Get("air_quality.json")
	s.Equal(2, air.TotalRows)
	s.Equal([]ColumnMissing{{"pm25", 0}, {"o3", 2}}, air.MissingPerColumn)
	s.InDelta(50.0, air.MissingPercentage, 1e-9)

	var withMissing []string
	for _, st := range results.WithMissing() {
		withMissing = append(withMissing, st.Filename)
	}
	s.Equal([]string{"traffic_sensors.csv", "weather_data.parquet", "air_quality.json"}, withMissing)
}

func (s *AuditorTestSuite) TestJSONShapes() {
	tests := []struct {
		name    string
		content string
		rows    int
		nulls   map[string]int
	}{
		{"array of objects", `[{"a":1,"b":null},{"a":null,"b":2}]`, 2, map[string]int{"a": 1, "b": 1}},
		{"heterogeneous keys", `[{"a":1},{"b":2}]`, 2, map[string]int{"a": 1, "b": 1}},
		{"nested object", `{"a":{"b":1}}`, 1, map[string]int{"a.b": 0}},
		{"empty array", `[]`, 0, map[string]int{}},
		{"python NaN", `[{"x":1},{"x":NaN,"y":2}]`, 2, map[string]int{"x": 1, "y": 1}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.write("air_quality.json", tt.content)

			results, err := s.newAuditor().Audit(context.Background(), []Dataset{
				{Name: "air_quality.json", Format: tabular.FormatJSON},
			})
			s.Require().NoError(err)

			stats, ok := results.Get("air_quality.json")
			s.Require().True(ok)
			s.Equal(tt.rows, stats.TotalRows)
			s.Equal(tt.nulls, stats.MissingByColumn())
		})
	}
}

func (s *AuditorTestSuite) TestHeaderOnlyCSV() {
	s.write("energy_meters.csv", "meter_id,reading\n")

	results, err := s.newAuditor().Audit(context.Background(), DefaultDatasets())
	s.Require().NoError(err)

	stats, ok := results.Get("energy_meters.csv")
	s.Require().True(ok)
	s.Equal(0, stats.TotalRows)
	s.Equal(2, stats.TotalColumns)
	s.Equal(0.0, stats.MissingPercentage)
}

func (s *AuditorTestSuite) TestDecodeFailureIsSkipped() {
	s.write("city_zones.csv", "a,b\n1,2\n")
	s.write("air_quality.json", `[1, 2]`)

	results, err := s.newAuditor().Audit(context.Background(), DefaultDatasets())
	s.Require().NoError(err)

	s.Equal([]string{"city_zones.csv"}, results.Filenames())
	failures := results.Failures()
	s.Require().Len(failures, 1)
	s.Equal("air_quality.json", failures[0].Filename)
	s.True(apperrors.IsType(failures[0].Err, apperrors.ErrTypeParsing))
	s.Contains(failures[0].Error(), "air_quality.json")

	_, ok := s.capture.Find(slog.LevelWarn, "dataset skipped")
	s.True(ok)
}

func (s *AuditorTestSuite) TestFailFastAborts() {
	s.write("city_zones.csv", "a,b\n1,2,3\n")
	s.write("energy_meters.csv", "a\n1\n")

	a := s.newAuditor(WithAuditConfig(config.AuditConfig{Workers: 1, FailFast: true}))
	results, err := a.Audit(context.Background(), DefaultDatasets())

	s.Require().Error(err)
	s.Nil(results)
	s.True(apperrors.IsType(err, apperrors.ErrTypeParsing))
	s.Contains(err.Error(), "city_zones.csv")

	_, ok := s.capture.Find(slog.LevelInfo, "dataset audited")
	s.False(ok, "datasets after the failure must not be audited")
	_, ok = s.capture.Find(slog.LevelError, "aborting audit")
	s.True(ok)
}

func (s *AuditorTestSuite) TestDirectoryAtPathIsFailure() {
	s.Require().NoError(os.MkdirAll(filepath.Join(s.dir, "city_zones.csv"), 0755))

	results, err := s.newAuditor().Audit(context.Background(), DefaultDatasets())
	s.Require().NoError(err)

	s.Equal(0, results.Len())
	failures := results.Failures()
	s.Require().Len(failures, 1)
	s.True(apperrors.IsType(failures[0].Err, apperrors.ErrTypeStorage))
}

func (s *AuditorTestSuite) TestWorkersKeepScanOrder() {
	var datasets []Dataset
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("part_%02d.csv", i)
		s.write(name, fmt.Sprintf("id,v\n%d,\n", i))
		datasets = append(datasets, Dataset{Name: name, Format: tabular.FormatCSV})
	}
	s.write("part_07.csv", "id\n1,2\n")

	a := s.newAuditor(WithAuditConfig(config.AuditConfig{Workers: 8}))
	results, err := a.Audit(context.Background(), datasets)
	s.Require().NoError(err)

	entries := results.Entries()
	s.Require().Len(entries, 20)
	for i, e := range entries {
		name := datasets[i].Name
		if i == 7 {
			s.Require().NotNil(e.Failure)
			s.Equal(name, e.Failure.Filename)
			continue
		}
		s.Require().NotNil(e.Stats)
		s.Equal(name, e.Stats.Filename)
	}
}

func (s *AuditorTestSuite) TestCanceledContext() {
	s.write("city_zones.csv", "a\n1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.newAuditor().Audit(ctx, DefaultDatasets())
	s.ErrorIs(err, context.Canceled)
}

func (s *AuditorTestSuite) TestTelemetry() {
	s.write("city_zones.csv", "a,b\n1,\n")
	s.write("air_quality.json", `"scalar"`)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, err := infrastructure.NewAuditMetrics(mp.Meter("test"))
	s.Require().NoError(err)

	a := s.newAuditor(WithTracer(tp.Tracer("test")), WithMetrics(metrics))
	_, err = a.Audit(context.Background(), DefaultDatasets())
	s.Require().NoError(err)

	spans := map[string]int{}
	for _, sp := range recorder.Ended() {
		spans[sp.Name()]++
		if sp.Name() != "audit.dataset" {
			continue
		}
		for _, kv := range sp.Attributes() {
			if kv.Key == "file" && kv.Value.AsString() == "air_quality.json" {
				s.Equal(codes.Error, sp.Status().Code)
				s.Contains(sp.Status().Description, "air_quality.json")
				s.Len(sp.Events(), 1, "decode error recorded as a span event")
			}
		}
	}
	s.Equal(1, spans["audit.run"])
	s.Equal(len(DefaultDatasets()), spans["audit.dataset"])

	var rm metricdata.ResourceMetrics
	s.Require().NoError(reader.Collect(context.Background(), &rm))
	byStatus := map[string]int64{}
	var missing int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				switch m.Name {
				case "dqaudit.datasets.audited":
					status, _ := dp.Attributes.Value("status")
					byStatus[status.AsString()] += dp.Value
				case "dqaudit.missing.cells":
					missing += dp.Value
				}
			}
		}
	}
	s.Equal(map[string]int64{"ok": 1, "failed": 1, "absent": 3}, byStatus)
	s.Equal(int64(1), missing)
}

func TestAuditorTestSuite(t *testing.T) {
	suite.Run(t, new(AuditorTestSuite))
}

func TestAudit_DefaultDatasets(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "traffic_sensors.csv", []byte("id\n1\n"))

	results, err := Audit(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"traffic_sensors.csv"}, results.Filenames())
}

func TestNewDataset(t *testing.T) {
	ds, err := NewDataset("weather_data.parquet")
	require.NoError(t, err)
	assert.Equal(t, tabular.FormatParquet, ds.Format)

	_, err = NewDataset("notes.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestDefaultDatasets(t *testing.T) {
	names := make([]string, 0, 5)
	for _, ds := range DefaultDatasets() {
		inferred, err := tabular.FormatFromPath(ds.Name)
		require.NoError(t, err)
		assert.Equal(t, inferred, ds.Format)
		names = append(names, ds.Name)
	}
	assert.Equal(t, []string{
		"city_zones.csv",
		"energy_meters.csv",
		"traffic_sensors.csv",
		"weather_data.parquet",
		"air_quality.json",
	}, names)
}
