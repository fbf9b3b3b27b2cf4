package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cliState is shared by every subcommand once the root has loaded config
type cliState struct {
	configPath string
	debug      bool
	cfg        *Config
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	rootCmd := &cobra.Command{
		Use:   "microdata",
		Short: "Structured metadata generator for forum pages",
		Long: `microdata renders JSON-LD, Open Graph and Twitter card metadata for forum
topics, categories and user profiles, and manages the rendered-output cache.`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(state.debug)
			cfg, err := LoadConfig(state.configPath)
			if err != nil {
				return err
			}
			if cfg.DebugMode && !state.debug {
				setupLogging(true)
			}
			state.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&state.configPath, "config", "c", "", "config file path or http(s) URL")
	rootCmd.PersistentFlags().BoolVar(&state.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newRenderCmd(state))
	rootCmd.AddCommand(newFeedCmd(state))
	rootCmd.AddCommand(newInvalidateCmd(state))
	rootCmd.AddCommand(newEventsCmd(state))
	rootCmd.AddCommand(newStatsCmd(state))
	rootCmd.AddCommand(newCacheCmd(state))
	rootCmd.AddCommand(newAuditCmd(state))
	return rootCmd
}

// pageSource selects where page data comes from: a JSON file or the forum API
type pageSource struct {
	input    string
	topic    int64
	category int64
	user     string
}

func (s *pageSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.input, "input", "i", "", "page data JSON file (- for stdin)")
	cmd.Flags().Int64Var(&s.topic, "topic", 0, "fetch this topic id from the forum API")
	cmd.Flags().Int64Var(&s.category, "category", 0, "fetch this category id from the forum API")
	cmd.Flags().StringVar(&s.user, "user", "", "fetch this username from the forum API")
	cmd.MarkFlagsMutuallyExclusive("input", "topic", "category", "user")
}

// load reads and normalizes the page data
func (s *pageSource) load(ctx context.Context, cmd *cobra.Command, cfg *Config) (*PageData, error) {
	var data *PageData
	var err error

	switch {
	case s.input != "":
		data, err = readPageData(cmd.InOrStdin(), s.input)
	case s.topic != 0:
		data, err = NewForumClient(cfg.BaseURL, cfg.IncludeUserStats).FetchTopic(ctx, s.topic)
	case s.category != 0:
		data, err = NewForumClient(cfg.BaseURL, false).FetchCategory(ctx, s.category)
	case s.user != "":
		data, err = NewForumClient(cfg.BaseURL, cfg.IncludeUserStats).FetchUser(ctx, s.user)
	default:
		data = &PageData{}
	}
	if err != nil {
		return nil, err
	}

	NormalizePageData(data, cfg)
	return data, nil
}

func readPageData(stdin io.Reader, path string) (*PageData, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open page data: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var data PageData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode page data: %w", err)
	}
	return &data, nil
}

// openGenerator builds a generator over the configured cache backend
func openGenerator(ctx context.Context, cfg *Config) (*Generator, func(), error) {
	store, err := OpenStore(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	cache := NewMetadataCache(store)
	closeFn := func() {
		if err := cache.Close(); err != nil {
			log.WithError(err).Warn("Failed to close cache")
		}
	}
	return NewGenerator(cfg, cache), closeFn, nil
}

func newRenderCmd(state *cliState) *cobra.Command {
	var source pageSource
	var langReq LanguageRequest
	var headOnly bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the head fragment for a page",
		Long: `Render the metadata head fragment for a topic, category or user page.
Page data is read from a JSON file or fetched from the forum API at base_url.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := source.load(ctx, cmd, state.cfg)
			if err != nil {
				return err
			}

			gen, closeFn, err := openGenerator(ctx, state.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			lang := ResolveLanguage(langReq, state.cfg.DefaultLocale)
			result := gen.Generate(ctx, data, lang)
			log.WithFields(log.Fields{
				"variant":  classify(data),
				"language": lang.Language,
				"bytes":    len(result.Head),
			}).Info("Rendered head fragment")

			out := cmd.OutOrStdout()
			if headOnly {
				_, err := fmt.Fprintln(out, result.Head)
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	source.register(cmd)
	cmd.Flags().StringVar(&langReq.UserLocale, "user-locale", "", "viewer's preferred locale")
	cmd.Flags().StringVar(&langReq.AcceptLanguage, "accept-language", "", "browser Accept-Language header")
	cmd.Flags().BoolVar(&headOnly, "head-only", false, "print the raw head fragment instead of JSON")
	return cmd
}

func newFeedCmd(state *cliState) *cobra.Command {
	var source pageSource

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Render an Atom feed of a topic's posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source.category != 0 || source.user != "" {
				return fmt.Errorf("feeds are only available for topics")
			}
			data, err := source.load(cmd.Context(), cmd, state.cfg)
			if err != nil {
				return err
			}
			if classify(data) != VariantTopic {
				return fmt.Errorf("page data does not describe a topic")
			}

			atom, err := BuildTopicFeed(data.Topic, state.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), atom)
			return err
		},
	}
	source.register(cmd)
	return cmd
}

func newInvalidateCmd(state *cliState) *cobra.Command {
	var kind string
	var id int64

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached renders affected by a content change",
		Long: fmt.Sprintf(`Drop cached renders affected by a content change.
Event kinds: %s, %s, %s, %s, %s, %s.`,
			EventTopicCreated, EventTopicEdited, EventPostCreated, EventPostEdited,
			EventCategoryUpdated, EventUserUpdated),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := eventVariant(EventKind(kind)); err != nil {
				return err
			}
			gen, closeFn, err := openGenerator(cmd.Context(), state.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			gen.HandleEvent(cmd.Context(), DomainEvent{Kind: EventKind(kind), EntityID: id})
			log.WithFields(log.Fields{"event": kind, "id": id}).Info("Invalidation handled")
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "event", "", "event kind")
	cmd.Flags().Int64Var(&id, "id", 0, "entity id (the topic id for post events)")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newEventsCmd(state *cliState) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Apply a stream of newline-delimited JSON domain events",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("failed to open events: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			ctx := cmd.Context()
			gen, closeFn, err := openGenerator(ctx, state.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			events := make(chan DomainEvent)
			done := make(chan struct{})
			go func() {
				defer close(done)
				gen.ConsumeEvents(ctx, events)
			}()

			count, err := decodeEvents(ctx, r, events)
			close(events)
			<-done

			log.WithField("count", count).Info("Processed domain events")
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "events file (default stdin)")
	return cmd
}

// decodeEvents reads one event per line into out, skipping blank lines and
// logging lines that do not decode.
func decodeEvents(ctx context.Context, r io.Reader, out chan<- DomainEvent) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var ev DomainEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			log.WithFields(log.Fields{"line": line, "error": err}).Warn("Skipping malformed event")
			continue
		}
		select {
		case out <- ev:
			count++
		case <-ctx.Done():
			return count, ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read events: %w", err)
	}
	return count, nil
}

func newStatsCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count cached renders per page kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, closeFn, err := openGenerator(cmd.Context(), state.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := gen.Stats(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func newCacheCmd(state *cliState) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache maintenance commands",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := OpenStore(cmd.Context(), state.cfg.Cache)
			if err != nil {
				return err
			}
			cache := NewMetadataCache(store)
			defer func() { _ = cache.Close() }()

			removed, err := cache.Prune(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", removed)
			return err
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached render",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, closeFn, err := openGenerator(cmd.Context(), state.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := gen.ClearAll(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return err
		},
	})
	return cacheCmd
}

func newAuditCmd(state *cliState) *cobra.Command {
	var source pageSource
	var concurrency int

	cmd := &cobra.Command{
		Use:   "audit URL...",
		Short: "Check live pages for tags that collide with the generated head",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := source.load(ctx, cmd, state.cfg)
			if err != nil {
				return err
			}
			lang := ResolveLanguage(LanguageRequest{}, state.cfg.DefaultLocale)
			head := NewCoordinator(data, state.cfg, lang).Generate().Head

			reports := NewPageAuditor(concurrency).AuditPages(ctx, args, head)

			failed := 0
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for i, report := range reports {
				if report == nil {
					failed++
					log.WithField("url", args[i]).Warn("Audit failed")
					continue
				}
				if err := enc.Encode(report); err != nil {
					return err
				}
			}
			if failed == len(reports) {
				return fmt.Errorf("no page could be audited")
			}
			return nil
		},
	}
	source.register(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "maximum concurrent fetches")
	return cmd
}
