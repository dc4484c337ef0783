package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"

	"github.com/hubertat/cso"
	"github.com/hubertat/cso/httpapi"
)

const defaultSyncInterval = "50ms"

var (
	Version string
	Build   string

	config       = flag.String("config", "config.json", "path of the configuration file")
	flagInstall  = flag.Bool("install", false, "Install service in os")
	syncInterval = flag.String("sync", defaultSyncInterval, "update interval (time.Duration)")
	logLevel     = flag.String("log-level", "info", "log level (debug, info, warn, error)")

	csoService = servicemaker.ServiceMaker{
		User:               "cso",
		UserGroups:         []string{"gpio", "i2c"},
		ServicePath:        "/etc/systemd/system/cso.service",
		ServiceDescription: "cso service: connected scenic object, OSC controlled pins. github.com/hubertat/cso",
		ExecDir:            "/srv/cso",
		ExecName:           "cso",
	}
)

func main() {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal("bad log level", "level", *logLevel, "err", err)
	}
	log.SetLevel(level)
	log.Info("cso started", "version", Version, "build", Build)

	if *flagInstall {
		err := csoService.InstallService()
		if err != nil {
			log.Fatal("failed to install service", "err", err)
		}
		log.Info("service installed!")
		return
	}

	syncDuration, err := time.ParseDuration(*syncInterval)
	if err != nil {
		log.Fatal("bad sync interval", "sync", *syncInterval, "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obj := &cso.Object{}
	cBuff, err := os.ReadFile(*config)
	if err != nil {
		log.Fatal("can't read config file, will terminate", "config", *config, "err", err)
	}
	err = json.Unmarshal(cBuff, obj)
	if err != nil {
		log.Fatal("failed unmarshalling json config", "err", err)
	}

	if obj.Influx != nil {
		err = obj.Influx.Open()
		if err != nil {
			log.Fatal("failed to open influx recorder", "err", err)
		}
	}

	log.Info("will init drivers...")
	err = obj.InitDrivers(ctx)
	defer obj.Close()
	if err != nil {
		log.Fatal("failed to init drivers", "err", err)
	}

	log.Info("will init devices...")
	err = obj.InitDevices()
	if err != nil {
		log.Fatal("failed to init devices", "err", err)
	}

	obj.PrintIoStatus(os.Stdout)

	err = obj.StartOsc(ctx)
	if err != nil {
		log.Fatal("failed to start osc", "err", err)
	}

	if len(obj.MqttBroker) > 0 {
		err = obj.InitMqtt(ctx)
		if err != nil {
			log.Error("mqtt not available, continuing without it", "err", err)
		}
	}

	if len(obj.HttpAddr) > 0 {
		server := httpapi.NewServer(obj.HttpAddr, obj)
		go func() {
			log.Info("http api listening", "addr", obj.HttpAddr)
			log.Error("http api stopped", "err", server.ListenAndServe())
		}()
		go func() {
			<-ctx.Done()
			server.Close()
		}()
	}

	if len(obj.HkPin) == 8 {
		log.Info("starting with HomeKit server")
		go func() {
			err := obj.StartHomeKit(ctx, Version)
			if err != nil {
				log.Error("HomeKit server stopped", "err", err)
			}
		}()
	} else {
		log.Info("HomeKit not configured, disabled")
	}

	obj.StartTicker(ctx, syncDuration)
	log.Info("shutting down")
}
