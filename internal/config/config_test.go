package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/bolao/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.EnforceDeadline, convey.ShouldBeTrue)
			convey.So(cfg.LockWindow(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.MaxGoals, convey.ShouldEqual, 99)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
		})

		convey.Convey("Then it ships no signing secret and does not validate without one", func() {
			convey.So(cfg.JWTSecret, convey.ShouldBeEmpty)
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

			cfg.JWTSecret = "s3cret"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then Store carries the persistence settings", func() {
			cfg.StoreDriver = "redis"
			cfg.RedisDB = 3
			st := cfg.Store()
			convey.So(st.Driver, convey.ShouldEqual, "redis")
			convey.So(st.RedisDB, convey.ShouldEqual, 3)
			convey.So(st.RedisPrefix, convey.ShouldEqual, "bolao")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting each", t, func() {
		mutations := []func(*config.Config){
			func(c *config.Config) { c.Addr = " " },
			func(c *config.Config) { c.JWTSecret = " " },
			func(c *config.Config) { c.LockMinutes = -5 },
			func(c *config.Config) { c.MaxGoals = 0 },
			func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			func(c *config.Config) { c.StoreDriver = "mongo" },
			func(c *config.Config) { c.StoreDriver = "postgres" },
			func(c *config.Config) { c.StoreDriver = "redis"; c.RedisAddr = "" },
		}

		convey.Convey("Then each fails with ErrInvalidConfig", func() {
			for _, mutate := range mutations {
				cfg := config.New(context.Background())
				cfg.JWTSecret = "s3cret"
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}
