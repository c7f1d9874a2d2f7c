// Command storyctl drives the storyboard workflow from a terminal: it creates
// a story, generates its character sheet and storyboard, saves it and
// downloads the images.
//
//	storyctl [flags] run "<story text>"
//	storyctl [flags] list
//	storyctl [flags] delete <story-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storyboard-app/internal/client/api"
	"storyboard-app/internal/client/studio"
	"storyboard-app/internal/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Settings come from STORYCTL_* variables; flags override them.
type settings struct {
	APIURL   string `envconfig:"API_URL" default:"http://localhost:8080"`
	Token    string `envconfig:"TOKEN"`
	Variant  string `envconfig:"VARIANT" default:"persisted"`
	Store    string `envconfig:"STORE" default:"sunday_stories.json"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
}

func main() {
	_ = godotenv.Load()

	var st settings
	if err := envconfig.Process("storyctl", &st); err != nil {
		fmt.Fprintln(os.Stderr, "storyctl:", err)
		os.Exit(2)
	}

	flag.StringVar(&st.APIURL, "api", st.APIURL, "orchestrator base URL")
	flag.StringVar(&st.Token, "token", st.Token, "bearer token")
	flag.StringVar(&st.Variant, "variant", st.Variant, "local or persisted")
	flag.StringVar(&st.Store, "store", st.Store, "saved-story file for the local variant")
	inputType := flag.String("type", "prompt", "input kind for run: prompt or text")
	outDir := flag.String("out", "", "download generated images into this directory")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: storyctl [flags] run <text> | list | delete <id>")
		flag.PrintDefaults()
	}
	flag.Parse()

	// stdout carries command output; logs go to stderr.
	log, err := logger.New(logger.Config{Level: st.LogLevel, Encoding: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		fmt.Fprintln(os.Stderr, "storyctl:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := newStudio(st, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "storyctl:", err)
		os.Exit(2)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "run":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(run(ctx, s, args[1], studio.InputKind(*inputType), *outDir))
	case "list":
		s.LoadSaved(ctx)
		for _, story := range s.Saved() {
			fmt.Printf("%s\t%-20s\t%d scenes\t%s\n", story.ID, story.Status, len(story.Prompts), story.Title)
		}
	case "delete":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		s.LoadSaved(ctx)
		if !s.DeleteStory(ctx, args[1]) {
			os.Exit(1)
		}
		fmt.Println("Story deleted successfully")
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func newStudio(st settings, log *zap.Logger) (*studio.Studio, error) {
	opts := studio.Options{
		Store:    studio.NewFileStore(st.Store),
		Notifier: studio.NotifierFunc(func(msg string) { fmt.Fprintln(os.Stderr, "!", msg) }),
		Logger:   log,
	}

	switch st.Variant {
	case "local":
		opts.Variant = studio.VariantLocal
	case "persisted":
		opts.Variant = studio.VariantPersisted
	default:
		return nil, fmt.Errorf("unknown variant %q", st.Variant)
	}

	if st.Token != "" {
		client, err := api.New(api.Config{BaseURL: st.APIURL, Token: api.StaticToken(st.Token)})
		if err != nil {
			return nil, err
		}
		opts.Backend = client
	} else if opts.Variant == studio.VariantPersisted {
		return nil, fmt.Errorf("the persisted variant needs -token or STORYCTL_TOKEN")
	}
	return studio.New(opts), nil
}

func run(ctx context.Context, s *studio.Studio, input string, kind studio.InputKind, outDir string) int {
	s.LoadSaved(ctx)

	s.CreateStory(ctx, input, kind)
	story := s.Current()
	fmt.Printf("Created %q (%d scenes)\n", story.Title, len(story.Prompts))

	s.GenerateCharacter(ctx)
	fmt.Println("Character reference:", s.Current().CharacterImage)

	s.GenerateStoryboard(ctx)
	for i, img := range s.Current().Images {
		fmt.Printf("Scene %d: %s\n", i+1, img.ImageURL)
	}

	s.SaveStory(ctx)

	if outDir != "" {
		paths, err := s.DownloadAll(ctx, outDir)
		for _, p := range paths {
			fmt.Println("Saved", p)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "download:", err)
			return 1
		}
	}
	return 0
}
