package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/liut/campus-assistant/htdocs"
	"github.com/liut/campus-assistant/pkg/services/amap"
	"github.com/liut/campus-assistant/pkg/services/assistant"
	"github.com/liut/campus-assistant/pkg/services/markup"
	"github.com/liut/campus-assistant/pkg/services/predict"
	"github.com/liut/campus-assistant/pkg/services/stores"
	"github.com/liut/campus-assistant/pkg/settings"
	"github.com/liut/campus-assistant/pkg/term"
	"github.com/liut/campus-assistant/pkg/web"
)

const shutdownTimeout = 10 * time.Second

var storeFlag = &cli.StringFlag{
	Name:        "store",
	Usage:       "history store: memory, sqlite or redis",
	Value:       settings.Current.HistoryStore,
	Destination: &settings.Current.HistoryStore,
}

var webCommand = &cli.Command{
	Name:  "web",
	Usage: "serve the chat widget and its api",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "listen",
			Usage:       "http listen address",
			Value:       settings.Current.HTTPListen,
			Destination: &settings.Current.HTTPListen,
		},
		storeFlag,
	},
	Action: runWeb,
}

var chatCommand = &cli.Command{
	Name:  "chat",
	Usage: "chat in the terminal",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "style", Usage: "glamour style: dark, light, notty, empty for auto"},
		&cli.IntFlag{Name: "width", Usage: "word wrap width", Value: 100},
		storeFlag,
	},
	Action: runChat,
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "show or clear a saved conversation",
	Subcommands: []*cli.Command{
		{Name: "show", Usage: "print the saved records as json", Flags: historyFlags, Action: runHistoryShow},
		{Name: "clear", Usage: "remove the saved records", Flags: historyFlags, Action: runHistoryClear},
	},
}

var historyFlags = []cli.Flag{
	&cli.StringFlag{Name: "cid", Usage: "conversation id, empty for the terminal conversation"},
	storeFlag,
}

func runWeb(c *cli.Context) error {
	kv, err := stores.OpenKV(settings.Current.HistoryStore)
	if err != nil {
		return err
	}
	defer kv.Close()

	srv := web.New(web.Config{
		Addr:       settings.Current.HTTPListen,
		Debug:      settings.InDevelop(),
		DocHandler: http.FileServer(http.FS(htdocs.FS())),
		KV:         kv,
		Predictor:  predict.NewClient(settings.Current.PredictURL, settings.Current.PredictTimeout),
	})

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		err := srv.Serve(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		zap.S().Info("shutting down server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(sctx)
	})
	return g.Wait()
}

func runChat(c *cli.Context) error {
	kv, err := stores.OpenKV(settings.Current.HistoryStore)
	if err != nil {
		return err
	}
	defer kv.Close()

	preset, err := stores.LoadPreset()
	if err != nil {
		zap.S().Infow("load preset fail", "err", err)
	}
	tr, err := markup.NewTerminal(c.String("style"), c.Int("width"))
	if err != nil {
		return err
	}
	sess := assistant.NewSession(assistant.Config{
		Predictor:    predict.NewClient(settings.Current.PredictURL, settings.Current.PredictTimeout),
		Renderer:     markup.New(markup.WithSanitize(settings.Current.MarkdownSanitize)),
		View:         amap.NewLinker(os.Stdout, settings.Name),
		Conversation: stores.NewConversation(kv, ""),
		Preset:       preset,
		HistoryLimit: settings.Current.HistoryLimit,
		PersistDelay: settings.Current.PersistDelay,
	})
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			zap.S().Infow("save history fail", "err", err)
		}
	}()

	var title string
	if preset != nil {
		title = preset.Title
	}
	return term.New(sess, tr, os.Stdin, os.Stdout).Run(c.Context, title)
}

func openConversation(c *cli.Context) (stores.Conversation, func(), error) {
	cid := c.String("cid")
	if len(cid) > 0 {
		var ok bool
		if cid, ok = stores.CastConversationID(cid); !ok {
			return nil, nil, fmt.Errorf("invalid conversation id %q", c.String("cid"))
		}
	}
	kv, err := stores.OpenKV(settings.Current.HistoryStore)
	if err != nil {
		return nil, nil, err
	}
	return stores.NewConversation(kv, cid), func() { _ = kv.Close() }, nil
}

func runHistoryShow(c *cli.Context) error {
	cs, done, err := openConversation(c)
	if err != nil {
		return err
	}
	defer done()
	recs, err := cs.LoadRecords(c.Context)
	if err != nil {
		return err
	}
	if recs == nil {
		fmt.Fprintf(os.Stderr, "no history under %s\n", cs.GetKey())
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

func runHistoryClear(c *cli.Context) error {
	cs, done, err := openConversation(c)
	if err != nil {
		return err
	}
	defer done()
	if err = cs.ClearRecords(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "cleared %s\n", cs.GetKey())
	return nil
}
