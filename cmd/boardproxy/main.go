package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l1"
	env "github.com/robotalks/boardlink/pkg/l1/env/controller"
	"github.com/robotalks/boardlink/pkg/link"
)

// slowCycle is the longest control cycle before the board reacts visibly late.
const slowCycle = 100 * time.Millisecond

var (
	interval    = 20 * time.Millisecond
	metricsAddr string
)

func init() {
	env.SetControllerType(l1.DefaultControllerType, l1.ControllerMeta{
		Description: "Sensor/actuator board",
	})
	env.SetupFlags()
	link.SetupFlags()
	flag.DurationVar(&interval, "interval", interval, "Control cycle interval")
	flag.StringVar(&metricsAddr, "metrics", metricsAddr, "Listen address for /metrics and /status, empty to disable")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if interval > slowCycle {
		glog.Warningf("control cycle %v is slower than %v", interval, slowCycle)
	}

	conf := link.NewConfig().MustLoad()
	envConf := env.NewConfig()
	if envConf.Info.Meta.Labels == nil {
		envConf.Info.Meta.Labels = make(map[string]string)
	}
	envConf.Info.Meta.Labels["device"] = conf.Device
	e := envConf.MustNewEnv()

	link.RegisterMetrics()
	session := conf.NewSession(e.Registrar)
	if session.Degraded() {
		glog.Warning("board unavailable, commands are accepted but not transmitted")
	}

	loop := fx.NewLoop()
	loop.Interval = interval
	loop.Add(e, session)

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("loop", loop))
	if metricsAddr != "" {
		runner.Go(fx.NamedRun("http", &statusServer{addr: metricsAddr, session: session}))
	}
	glog.Infof("%s serving %s", e.Config.Info.Ref.Name(), conf.Device)
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}

type statusServer struct {
	addr    string
	session *link.Session
}

func (s *statusServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.session.LinkStatus()); err != nil {
			glog.Errorf("write status error: %v", err)
		}
	})
	server := &http.Server{Addr: s.addr, Handler: mux}
	return fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
}
