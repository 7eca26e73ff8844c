package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/redtapehq/redtape/blobstore"
	"github.com/redtapehq/redtape/pkg/robusthttp"
	"github.com/redtapehq/redtape/tracker"
	"github.com/redtapehq/redtape/webcache"

	cli "github.com/urfave/cli/v2"
)

// One-shot commands. These act directly against the backend store; with no
// --redis-url they run on a throwaway in-process store, which is only useful
// for kicking the tires.

var storeCmd = &cli.Command{
	Name:      "store",
	Usage:     "store a value, printing the generated key",
	ArgsUsage: "<value>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "as",
			Usage: "how to interpret the value (text, int, float)",
			Value: "text",
		},
	},
	Action: runStore,
}

func runStore(cctx *cli.Context) error {
	ctx := cctx.Context
	configLogger(cctx, os.Stderr)

	raw := cctx.Args().First()
	if raw == "" {
		return fmt.Errorf("need to provide a value to store")
	}
	var value any
	switch cctx.String("as") {
	case "text":
		value = raw
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing integer value: %w", err)
		}
		value = n
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parsing float value: %w", err)
		}
		value = f
	default:
		return fmt.Errorf("unknown value type: %s", cctx.String("as"))
	}

	kv, err := setupStore(cctx)
	if err != nil {
		return err
	}
	blobs, err := blobstore.New(kv)
	if err != nil {
		return err
	}
	key, err := blobs.Put(ctx, value)
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

var getCmd = &cli.Command{
	Name:      "get",
	Usage:     "retrieve a stored value by key",
	ArgsUsage: "<key>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "as",
			Usage: "decode to apply (text, int, float, raw)",
			Value: "text",
		},
	},
	Action: runGet,
}

func runGet(cctx *cli.Context) error {
	ctx := cctx.Context
	configLogger(cctx, os.Stderr)

	key := cctx.Args().First()
	if key == "" {
		return fmt.Errorf("need to provide a key")
	}
	kv, err := setupStore(cctx)
	if err != nil {
		return err
	}
	blobs, err := blobstore.New(kv)
	if err != nil {
		return err
	}
	switch cctx.String("as") {
	case "text":
		val, err := blobs.GetString(ctx, key)
		if err != nil {
			return err
		}
		fmt.Println(val)
	case "int":
		n, err := blobs.GetInt64(ctx, key)
		if err != nil {
			return err
		}
		fmt.Println(n)
	case "float":
		f, err := blobs.GetFloat64(ctx, key)
		if err != nil {
			return err
		}
		fmt.Println(f)
	case "raw":
		raw, err := blobs.Get(ctx, key, nil)
		if err != nil {
			return err
		}
		os.Stdout.Write(raw.([]byte))
	default:
		return fmt.Errorf("unknown decode type: %s", cctx.String("as"))
	}
	return nil
}

var getPageCmd = &cli.Command{
	Name:      "get-page",
	Usage:     "fetch a URL through the TTL response cache, printing the body",
	ArgsUsage: "<url>",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "how long fetched pages stay cached",
			Value: webcache.DefaultTTL,
		},
	},
	Action: runGetPage,
}

func runGetPage(cctx *cli.Context) error {
	ctx := cctx.Context
	logger := configLogger(cctx, os.Stderr)

	url := cctx.Args().First()
	if url == "" {
		return fmt.Errorf("need to provide a URL to fetch")
	}
	kv, err := setupStore(cctx)
	if err != nil {
		return err
	}
	fetch := webcache.NewHTTPFetcher(robusthttp.NewClient(robusthttp.WithLogger(logger)))
	pages := webcache.New(kv, fetch, webcache.WithTTL(cctx.Duration("ttl")))
	content, err := pages.Get(ctx, url)
	if err != nil {
		return err
	}
	fmt.Println(content)
	return nil
}

var replayCmd = &cli.Command{
	Name:      "replay",
	Usage:     "print the recorded call history for an operation",
	ArgsUsage: "<op-name>",
	Action:    runReplay,
}

func runReplay(cctx *cli.Context) error {
	ctx := cctx.Context
	configLogger(cctx, os.Stderr)

	name := cctx.Args().First()
	if name == "" {
		return fmt.Errorf("need to provide an operation name")
	}
	kv, err := setupStore(cctx)
	if err != nil {
		return err
	}
	return tracker.Replay(ctx, os.Stdout, tracker.Handle(kv, name))
}
