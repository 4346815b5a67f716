package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/robotalks/boardlink/pkg/l1/comm/mqtt"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
	"github.com/robotalks/boardlink/pkg/recorder"
)

var (
	mqttURL  = "mqtt://localhost:1883/boardlink/"
	playFile string
)

func init() {
	if val := os.Getenv("BOARDLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&playFile, "play", playFile, "Print a recording instead of subscribing.")
}

func describe(typed *msgs.Typed) string {
	msg, err := typed.Decode()
	if err != nil {
		return fmt.Sprintf("decode error: (type_id=%x) %v", typed.TypeId, err)
	}
	return fmt.Sprintf("[%s] %s",
		reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
		msg.(msgs.SerializableMessage).Serializable().String())
}

func play(path string) {
	p, err := recorder.Open(path)
	if err != nil {
		log.Fatalln(err)
	}
	defer p.Close()
	for {
		entry, err := p.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatalln(err)
		}
		log.Printf("%s %s", entry.Time.Format("15:04:05.000000"), describe(entry.Typed))
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	if playFile != "" {
		log.SetFlags(0)
		play(playFile)
		return
	}

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, describe(typed))
	}))
	<-(chan struct{})(nil)
}
