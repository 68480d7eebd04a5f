package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/thermobeat/cmd/app"
	"github.com/Agrid-Dev/thermobeat/internal/bench"
	httpctrl "github.com/Agrid-Dev/thermobeat/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/thermobeat/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/thermobeat/internal/controllers/mqtt"
	"github.com/Agrid-Dev/thermobeat/internal/device"
	"github.com/Agrid-Dev/thermobeat/internal/metrics"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	profile, err := cfg.EnergyProfile()
	if err != nil {
		log.Fatal(err)
	}

	b, err := bench.New(profile, cfg.Operating())
	if err != nil {
		log.Fatal(err)
	}
	dev := device.New(cfg.DeviceID, b)

	metrics.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	started := 0

	if c := cfg.Controllers.HTTP; c.Enabled {
		srv := httpctrl.New(dev.B, c.Addr, dev.ID)
		log.Printf("thermobeat http listening on %s", c.Addr)
		g.Go(func() error { return srv.Run(ctx) })
		started++
	}

	if c := cfg.Controllers.MQTT; c.Enabled {
		ctrl, err := mqttctrl.New(dev.B, mqttctrl.Config{
			DeviceID:        dev.ID,
			BrokerURL:       c.BrokerURL,
			ClientID:        c.ClientID,
			BaseTopic:       c.BaseTopic,
			QoS:             c.QoS,
			RetainReport:    c.RetainReport,
			PublishInterval: c.PublishInterval,
			Username:        c.Username,
			Password:        c.Password,
			Logger:          log.New(os.Stderr, "mqtt: ", log.LstdFlags),
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("thermobeat mqtt connecting to %s", c.BrokerURL)
		g.Go(func() error { return ctrl.Run(ctx) })
		started++
	}

	if c := cfg.Controllers.Modbus; c.Enabled {
		ctrl, err := modbusctrl.New(dev.B, modbusctrl.Config{
			DeviceID: dev.ID,
			Addr:     c.Addr,
			UnitID:   c.UnitID,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("thermobeat modbus listening on %s (unit %d)", c.Addr, c.UnitID)
		g.Go(func() error { return ctrl.Run(ctx) })
		started++
	}

	if started == 0 {
		log.Fatal("no controller enabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("controller exited: %v", err)
		os.Exit(1)
	}
}
