package config_test

import (
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/veride/brandaudit/internal/config"
)

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the expected defaults", func() {
			convey.So(cfg, convey.ShouldNotBeNil)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.SourceRPS, convey.ShouldEqual, 20)
			convey.So(cfg.SourceBurst, convey.ShouldEqual, 40)
			convey.So(cfg.SourceTimeoutMS, convey.ShouldEqual, 10_000)
			convey.So(cfg.AnalysisTimeoutMS, convey.ShouldEqual, 30_000)
			convey.So(cfg.NarrativeTimeoutMS, convey.ShouldEqual, 15_000)
			convey.So(cfg.AnalysisConcurrency, convey.ShouldEqual, 8)
			convey.So(cfg.PostsPerProfile, convey.ShouldEqual, 12)
			convey.So(cfg.OverlapMinSample, convey.ShouldEqual, 50)
			convey.So(cfg.CoalesceWindowHours, convey.ShouldEqual, 24)
			convey.So(cfg.FraudWeights, convey.ShouldBeNil)
			convey.So(cfg.ContentWeights, convey.ShouldBeNil)
			convey.So(cfg.NarrativeAPIKey, convey.ShouldBeEmpty)
		})
	})
}
