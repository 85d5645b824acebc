// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Winch daemon

package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aamcrae/winch/drive"
	"github.com/aamcrae/winch/io"
)

var configFile = flag.String("config", "/etc/winchd.conf", "Configuration file")
var webAddr = flag.String("web", ":8080", "Status server address (empty to disable)")
var verbose = flag.Bool("v", false, "Debug logging")

func main() {
	flag.Parse()
	var zl *zap.Logger
	var err error
	if *verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	log := zl.Sugar()

	conf, err := drive.Load(*configFile)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}

	store, err := io.NewFileStore(conf.File, conf.Offset, len(conf.Winches))
	if err != nil {
		log.Fatalf("%s: %v", conf.File, err)
	}
	defer store.Close()

	driver, err := buildDriver(conf)
	if err != nil {
		log.Fatalf("driver: %v", err)
	}

	var channels []*drive.Channel
	for i, wc := range conf.Winches {
		target := drive.TargetSteps(wc.Distance, wc.Spool, wc.Resolution)
		log.Infof("%s: travel %.1f, spool %.1f, resolution %d -> target %d steps",
			wc.Name, wc.Distance, wc.Spool, wc.Resolution, target)
		channels = append(channels, drive.NewChannel(i, wc.Name, target, wc.Speed))
	}

	ctrl := drive.NewController(channels, driver, store, log)
	ctrl.Period = conf.Period
	ctrl.Idle = conf.Idle

	sinks := drive.Sinks{&drive.LogSink{Log: log}}
	if *webAddr != "" {
		ss := drive.NewStatusServer(log)
		sinks = append(sinks, ss)
		go func() {
			if err := ss.Serve(*webAddr); err != nil {
				log.Warnf("status server: %v", err)
			}
		}()
	}
	ctrl.Sink = sinks

	// Seed the counts before any edges can arrive.
	if err := ctrl.Restore(); err != nil {
		log.Fatalf("restore: %v", err)
	}

	for i, wc := range conf.Winches {
		dec := drive.NewDecoder(channels[i], ctrl.Clock)
		enc, err := io.Encoder(wc.Chip, wc.PinA, wc.PinB, 0, dec.Edge)
		if err != nil {
			log.Fatalf("%s: encoder on %d/%d: %v", wc.Name, wc.PinA, wc.PinB, err)
		}
		defer enc.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := ctrl.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("control loop: %v", err)
	}
	log.Infof("shutting down")
}

// buildDriver creates the configured motor driver and binds each winch
// to its output.
func buildDriver(conf *drive.Config) (drive.Driver, error) {
	if conf.Driver == "hat" {
		hat, err := io.OpenMotorHat(conf.Bus, uint16(conf.Address))
		if err != nil {
			return nil, err
		}
		for i, wc := range conf.Winches {
			if err := hat.Attach(i, wc.Motor); err != nil {
				return nil, err
			}
		}
		return hat, nil
	}
	bridge := io.NewHBridge()
	for i, wc := range conf.Winches {
		if len(wc.Bridge) != 3 {
			return nil, fmt.Errorf("%s: bridge driver needs bridge= pins", wc.Name)
		}
		in1, err := io.OutputPin(wc.Chip, wc.Bridge[0])
		if err != nil {
			return nil, err
		}
		in2, err := io.OutputPin(wc.Chip, wc.Bridge[1])
		if err != nil {
			return nil, err
		}
		var pwm io.PWM
		if wc.PwmUnit >= 0 {
			pwm, err = io.NewHwPWM(wc.PwmUnit)
			if err != nil {
				return nil, err
			}
		} else {
			en, err := io.OutputPin(wc.Chip, wc.Bridge[2])
			if err != nil {
				return nil, err
			}
			pwm = io.NewSwPWM(en)
		}
		bridge.Attach(i, in1, in2, pwm)
	}
	return bridge, nil
}
