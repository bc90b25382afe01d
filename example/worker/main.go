// Example consumer: subscribes to the topics the gateway's dispatch rules
// emit and reacts to settled payments. Point it at the same config file as
// the gateway and it derives its subscriptions from the rules section.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	worker "pixhooks/pkg/worker"

	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to app config")
	driver := flag.String("driver", "", "Override subscriber driver (amqp|nats|kafka|sql|gochannel)")
	flag.Parse()

	log.SetPrefix("pixhooks/worker-example ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	subCfg, err := worker.LoadSubscriberConfig(*configPath)
	if err != nil {
		log.Fatalf("load subscriber config: %v", err)
	}
	if *driver != "" {
		subCfg.Driver = *driver
		subCfg.Drivers = nil
	}

	topics, err := worker.LoadTopicsFromConfig(*configPath)
	if err != nil {
		log.Fatalf("load topics: %v", err)
	}
	if len(topics) == 0 {
		log.Fatal("no topics found in config rules")
	}

	sub, err := worker.BuildSubscriber(subCfg)
	if err != nil {
		log.Fatalf("subscriber: %v", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Printf("subscriber close: %v", err)
		}
	}()

	wk := worker.New(
		worker.WithSubscriber(sub),
		worker.WithTopics(topics...),
		worker.WithConcurrency(5),
		worker.WithRetry(worker.AckOnError{}),
		worker.WithListener(worker.Listener{
			OnStart: func(ctx context.Context) { log.Println("worker started") },
			OnExit:  func(ctx context.Context) { log.Println("worker stopped") },
			OnError: func(ctx context.Context, evt *worker.Event, err error) {
				log.Printf("worker error: %v", err)
			},
			OnMessageFinish: func(ctx context.Context, evt *worker.Event, err error) {
				log.Printf("finished provider=%s type=%s event_id=%s err=%v", evt.Provider, evt.Type, evt.EventID, err)
			},
		}),
	)

	wk.HandleStatus("COMPLETED", func(ctx context.Context, evt *worker.Event) error {
		if driver := evt.Metadata["driver"]; driver != "" {
			log.Printf("driver=%s topic=%s", driver, evt.Topic)
		}
		log.Printf("payment settled provider=%s event_id=%s", evt.Provider, evt.EventID)
		return nil
	})
	wk.HandleStatus("EXPIRED", func(ctx context.Context, evt *worker.Event) error {
		log.Printf("charge expired provider=%s event_id=%s", evt.Provider, evt.EventID)
		return nil
	})

	if err := wk.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("worker: %v", err)
	}
}
