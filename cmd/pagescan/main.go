/**
 * Extractext Pagescan - Page Context CLI
 *
 * Scans a web page for text-bearing image candidates and optionally runs the
 * extraction pipeline on one of them through a running agent.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/extractext/extractext/internal/config"
	"github.com/extractext/extractext/internal/detect"
	"github.com/extractext/extractext/internal/page"
	"github.com/extractext/extractext/internal/protocol"
)

func main() {
	extractIndex := flag.Int("extract", -1, "extract text from the candidate at this index (requires a running agent)")
	watchInterval := flag.Duration("watch", 0, "re-scan the page at this interval and report candidate changes")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: pagescan [-extract N] <page-url>\n")
		os.Exit(2)
	}
	pageURL := flag.Arg(0)

	if err := godotenv.Load(".env.extractext"); err != nil {
		log.Printf("Warning: .env.extractext not found, using system environment variables")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	candidates, err := scan(pageURL)
	if err != nil {
		log.Fatalf("Failed to scan page: %v", err)
	}

	if len(candidates) == 0 {
		fmt.Println("No text-bearing image candidates found.")
		return
	}
	fmt.Printf("Found %d candidate(s) on %s:\n", len(candidates), pageURL)
	for i, c := range candidates {
		fmt.Printf("  [%d] confidence=%d %dx%d %s\n",
			i, c.Confidence, c.Image.NaturalWidth, c.Image.NaturalHeight, c.Image.Src)
	}

	if *watchInterval > 0 {
		watch(pageURL, *watchInterval)
		return
	}

	if *extractIndex < 0 {
		return
	}
	if *extractIndex >= len(candidates) {
		log.Fatalf("Candidate index %d out of range (0-%d)", *extractIndex, len(candidates)-1)
	}

	text, err := extract(cfg, candidates[*extractIndex].Image.Src)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}
	fmt.Println("Extracted text (also on the clipboard):")
	fmt.Println(text)
}

// watch polls the page and reports each change to the candidate set. The
// watcher debounces the polls, so a burst of edits surfaces as one event.
func watch(pageURL string, interval time.Duration) {
	source := func() (detect.PageInfo, []detect.ImageRef) {
		images, info, err := fetchImages(pageURL)
		if err != nil {
			log.Printf("Rescan failed: %v", err)
			return detect.PageInfo{URL: pageURL}, nil
		}
		return info, images
	}

	watcher := detect.NewWatcher(source, interval/2)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go watcher.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			watcher.Notify()
		case snap := <-watcher.Events():
			fmt.Printf("%s candidate set changed, %d candidate(s):\n",
				snap.At.Format(time.RFC3339), len(snap.Candidates))
			for i, c := range snap.Candidates {
				fmt.Printf("  [%d] confidence=%d %s\n", i, c.Confidence, c.Image.Src)
			}
			if len(snap.Candidates) >= 2 {
				fmt.Println("  Multiple text-bearing images detected; pick one with -extract N.")
			}
		}
	}
}

// scan fetches the page and runs candidate detection over its images.
func scan(pageURL string) ([]detect.ImageCandidate, error) {
	images, info, err := fetchImages(pageURL)
	if err != nil {
		return nil, err
	}
	return detect.Detect(info, images), nil
}

func fetchImages(pageURL string) ([]detect.ImageRef, detect.PageInfo, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(pageURL)
	if err != nil {
		return nil, detect.PageInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, detect.PageInfo{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return detect.ScanHTML(resp.Body, pageURL)
}

// extract drives the full pipeline for one image through the agent.
func extract(cfg *config.Config, imageURL string) (string, error) {
	transport, err := protocol.NewRedisTransport(cfg.RedisURL)
	if err != nil {
		return "", err
	}
	defer transport.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timeout := time.Duration(cfg.RequestTimeout) * time.Millisecond
	conn := protocol.NewConn(cfg.PageChannel, transport)
	svc, err := page.New(page.Options{
		Conn:  conn,
		Agent: page.NewAgentClient(conn, cfg.AgentChannel, timeout),
	})
	if err != nil {
		return "", err
	}
	if err := svc.Start(ctx); err != nil {
		return "", err
	}
	defer svc.Shutdown()

	return svc.ExtractAndCopy(ctx, imageURL)
}
