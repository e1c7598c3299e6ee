// cogmem is the reference command-line harness for the cognitive
// retrieval engine: it wires the store, retrieval pipeline, location
// memory, and embedding lifecycle together and exposes the text-memory
// and location-memory API surfaces as subcommands, plus a `serve` mode
// that runs the background sweeps until interrupted.
//
// This is glue, not the engine: everything here could be replaced by an
// HTTP server or an MCP tool-dispatch front end without touching
// internal/retrieval, internal/location, or internal/embedlifecycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/vthunder/cogmem/internal/config"
	"github.com/vthunder/cogmem/internal/embedclient"
	"github.com/vthunder/cogmem/internal/embedlifecycle"
	"github.com/vthunder/cogmem/internal/location"
	"github.com/vthunder/cogmem/internal/retrieval"
	"github.com/vthunder/cogmem/internal/store"
	"github.com/vthunder/cogmem/internal/sweep"
	"github.com/vthunder/cogmem/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := store.Open(cfg.StateDir)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	embed := embedclient.NewOllama(cfg.OllamaURL, cfg.EmbedModel)
	engine := retrieval.New(db, embed, cfg.Retrieval)
	locMgr := location.New(db, cfg.Decay)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "serve":
		runServe(db, embed, engine, locMgr, cfg)
	case "store":
		cmdStore(db, engine, args)
	case "query":
		cmdQuery(engine, args)
	case "context":
		cmdContext(engine, args)
	case "forget":
		cmdForget(db, args)
	case "stats":
		cmdStats(db, args)
	case "loc-record":
		cmdLocRecord(locMgr, args)
	case "loc-get":
		cmdLocGet(locMgr, args)
	case "loc-find":
		cmdLocFind(locMgr, args)
	case "loc-all":
		cmdLocAll(locMgr, args)
	case "loc-recent":
		cmdLocRecent(locMgr, args)
	case "loc-stats":
		cmdLocStats(locMgr, args)
	case "loc-contexts":
		cmdLocContexts(locMgr, args)
	case "loc-associated":
		cmdLocAssociated(locMgr, args)
	case "loc-by-activity":
		cmdLocByActivity(locMgr, args)
	case "loc-pin":
		cmdLocPin(locMgr, args, true)
	case "loc-unpin":
		cmdLocPin(locMgr, args, false)
	case "loc-decay":
		cmdLocDecay(locMgr)
	case "loc-orphaned":
		cmdLocOrphaned(locMgr, args)
	case "loc-merge":
		cmdLocMerge(locMgr, args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `cogmem <command> [flags]

Text memory:
  store -content ... [-kind ...] [-project ...]
  query -probe ... [-kind ...] [-project ...]
  context -probe ... [-project ...] [-budget 300]
  forget -id ...
  stats

Location memory:
  loc-record -project ... -path ... [-direct] [-activity ...] [-context ...] [-tool ...] [-task ...]
  loc-get -id ...
  loc-find -project ... -q ...
  loc-all -project ...
  loc-recent -project ... [-n 10]
  loc-stats -project ...
  loc-contexts -id ... [-limit 20]
  loc-associated -project ... -path ...
  loc-by-activity -project ... -activity ...
  loc-pin / loc-unpin -id ...
  loc-decay
  loc-orphaned -project ...
  loc-merge -project ... -old ... -new ...

serve     run background embedding-regeneration and decay sweeps`)
}

// runServe starts the two host-owned background sweeps and blocks until
// SIGINT/SIGTERM.
func runServe(db *store.DB, embed embedclient.Embedder, engine *retrieval.Engine, locMgr *location.Manager, cfg config.Config) {
	ctx, cancel := context.WithCancel(context.Background())

	contentSource := func(ownerID string) (string, error) {
		m, err := db.GetMemory(ownerID)
		if err != nil {
			return "", err
		}
		return m.Content, nil
	}
	ledger := embedlifecycle.New(db, store.SpaceText, embed, contentSource)

	go sweep.RunEmbeddingSweep(ctx, ledger, cfg.SweepInterval, cfg.SweepBatchSize)
	go sweep.RunDecaySweep(ctx, locMgr, cfg.DecaySweepInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("shutting down sweeps...")
	cancel()
	time.Sleep(200 * time.Millisecond)
}

func cmdStore(db *store.DB, engine *retrieval.Engine, args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	content := fs.String("content", "", "memory content (required)")
	gist := fs.String("gist", "", "short summary")
	kind := fs.String("kind", string(types.KindContext), "memory kind")
	project := fs.String("project", "", "project id")
	weight := fs.Float64("weight", types.DefaultEmotionalWeight, "emotional weight")
	fs.Parse(args)

	if *content == "" {
		log.Fatal("-content is required")
	}

	m := &types.Memory{
		ID:              uuid.NewString(),
		Content:         *content,
		Gist:            *gist,
		Kind:            types.MemoryKind(*kind),
		EmotionalWeight: *weight,
		ProjectID:       *project,
		CreatedAt:       time.Now(),
	}
	if m.Gist == "" {
		m.Gist = truncateGist(m.Content)
	}
	if err := db.CreateMemory(m); err != nil {
		log.Fatalf("store: %v", err)
	}
	if err := engine.RecordCreationAccess(m.ID, m.CreatedAt); err != nil {
		log.Fatalf("record creation access: %v", err)
	}
	fmt.Println(m.ID)
}

func truncateGist(content string) string {
	const maxGist = 150
	if len(content) <= maxGist {
		return content
	}
	return content[:maxGist-3] + "..."
}

func cmdQuery(engine *retrieval.Engine, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	probe := fs.String("probe", "", "probe text")
	kind := fs.String("kind", "", "kind filter")
	project := fs.String("project", "", "project filter")
	fs.Parse(args)

	results, err := engine.Retrieve(context.Background(), retrieval.Query{
		ProbeText: *probe,
		Kind:      types.MemoryKind(*kind),
		ProjectID: *project,
	})
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	for _, r := range results {
		fmt.Printf("%.4f\t%s\t%s\n", r.Score, r.Memory.ID, r.Memory.Gist)
	}
}

func cmdContext(engine *retrieval.Engine, args []string) {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	probe := fs.String("probe", "", "probe text")
	project := fs.String("project", "", "project filter")
	budget := fs.Int("budget", 0, "token budget")
	fs.Parse(args)

	ctx, err := engine.AssembleContext(context.Background(), retrieval.Query{ProbeText: *probe, ProjectID: *project}, *budget)
	if err != nil {
		log.Fatalf("context: %v", err)
	}
	for _, item := range ctx.Selected {
		fmt.Printf("%s: %s\n", item.MemoryID, item.Gist)
	}
	fmt.Println(ctx.Summary)
}

func cmdForget(db *store.DB, args []string) {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	id := fs.String("id", "", "memory id")
	fs.Parse(args)
	if err := db.DeleteMemory(*id); err != nil {
		log.Fatalf("forget: %v", err)
	}
}

func cmdStats(db *store.DB, args []string) {
	stats, err := db.Stats()
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	for table, n := range stats {
		fmt.Printf("%s: %s\n", table, humanize.Comma(int64(n)))
	}
}

func cmdLocRecord(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-record", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	path := fs.String("path", "", "path")
	desc := fs.String("desc", "", "description")
	direct := fs.Bool("direct", true, "direct access")
	activity := fs.String("activity", "", "explicit activity type")
	ctxStr := fs.String("context", "", "context string")
	tool := fs.String("tool", "", "tool name")
	task := fs.String("task", "", "task descriptor")
	fs.Parse(args)

	loc, err := mgr.Record(*project, *path, *desc, *direct, types.ActivityType(*activity), *ctxStr, *tool, *task)
	if err != nil {
		log.Fatalf("loc-record: %v", err)
	}
	fmt.Printf("%s familiarity=%.3f\n", loc.ID, loc.Familiarity)
}

func cmdLocGet(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-get", flag.ExitOnError)
	id := fs.String("id", "", "location id")
	fs.Parse(args)
	loc, err := mgr.Get(*id)
	if err != nil {
		log.Fatalf("loc-get: %v", err)
	}
	fmt.Printf("%s\tfamiliarity=%.3f\taccessed %s\t%s\n", loc.Path, loc.Familiarity, humanize.Time(loc.LastAccessed), loc.ID)
}

func cmdLocFind(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-find", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	q := fs.String("q", "", "path substring")
	fs.Parse(args)
	locs, err := mgr.Find(*project, *q)
	if err != nil {
		log.Fatalf("loc-find: %v", err)
	}
	printLocations(locs)
}

func cmdLocAll(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-all", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	fs.Parse(args)
	locs, err := mgr.All(*project)
	if err != nil {
		log.Fatalf("loc-all: %v", err)
	}
	printLocations(locs)
}

func cmdLocRecent(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-recent", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	n := fs.Int("n", 10, "count")
	fs.Parse(args)
	locs, err := mgr.Recent(*project, *n)
	if err != nil {
		log.Fatalf("loc-recent: %v", err)
	}
	printLocations(locs)
}

func cmdLocStats(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-stats", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	fs.Parse(args)
	stats, err := mgr.Stats(*project)
	if err != nil {
		log.Fatalf("loc-stats: %v", err)
	}
	fmt.Printf("total=%s well_known=%s pinned=%s\n",
		humanize.Comma(int64(stats.TotalLocations)), humanize.Comma(int64(stats.WellKnown)), humanize.Comma(int64(stats.Pinned)))
}

func cmdLocContexts(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-contexts", flag.ExitOnError)
	id := fs.String("id", "", "location id")
	limit := fs.Int("limit", 20, "max rows")
	fs.Parse(args)
	contexts, err := mgr.Contexts(*id, *limit)
	if err != nil {
		log.Fatalf("loc-contexts: %v", err)
	}
	for _, c := range contexts {
		fmt.Printf("%s\t%s\t%s\n", c.Timestamp.Format(time.RFC3339), c.Activity, c.Context)
	}
}

func cmdLocAssociated(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-associated", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	path := fs.String("path", "", "path")
	fs.Parse(args)
	assoc, err := mgr.Associated(*project, *path)
	if err != nil {
		log.Fatalf("loc-associated: %v", err)
	}
	for _, a := range assoc {
		fmt.Printf("%.3f\t%s\t%.3f\n", a.Strength, a.Location.Path, a.Familiarity)
	}
}

func cmdLocByActivity(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-by-activity", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	activity := fs.String("activity", "", "activity type")
	fs.Parse(args)
	locs, err := mgr.ByActivity(*project, types.ActivityType(*activity))
	if err != nil {
		log.Fatalf("loc-by-activity: %v", err)
	}
	printLocations(locs)
}

func cmdLocPin(mgr *location.Manager, args []string, pinned bool) {
	fs := flag.NewFlagSet("loc-pin", flag.ExitOnError)
	id := fs.String("id", "", "location id")
	fs.Parse(args)
	var err error
	if pinned {
		err = mgr.Pin(*id)
	} else {
		err = mgr.Unpin(*id)
	}
	if err != nil {
		log.Fatalf("loc-pin: %v", err)
	}
}

func cmdLocDecay(mgr *location.Manager) {
	n, err := mgr.Decay()
	if err != nil {
		log.Fatalf("loc-decay: %v", err)
	}
	fmt.Printf("changed=%d\n", n)
}

func cmdLocOrphaned(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-orphaned", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	fs.Parse(args)
	locs, err := mgr.Orphaned(*project)
	if err != nil {
		log.Fatalf("loc-orphaned: %v", err)
	}
	printLocations(locs)
}

func cmdLocMerge(mgr *location.Manager, args []string) {
	fs := flag.NewFlagSet("loc-merge", flag.ExitOnError)
	project := fs.String("project", "", "project id")
	oldPath := fs.String("old", "", "old path")
	newPath := fs.String("new", "", "new path")
	fs.Parse(args)
	loc, err := mgr.Merge(*project, *oldPath, *newPath)
	if err != nil {
		log.Fatalf("loc-merge: %v", err)
	}
	if loc == nil {
		fmt.Println("neither path known")
		return
	}
	fmt.Printf("%s familiarity=%.3f\n", loc.ID, loc.Familiarity)
}

func printLocations(locs []*types.Location) {
	for _, l := range locs {
		fmt.Printf("%.3f\t%s\t%s\n", l.Familiarity, l.Path, l.ID)
	}
}
