package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/romangod6/sitemap-harvester/internal/fetcher"
	"github.com/romangod6/sitemap-harvester/internal/sitemap"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: sitemapstats <sitemap-url>")
		os.Exit(2)
	}
	location := os.Args[1]

	var f sitemap.Fetcher
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		f = fetcher.NewHTTPFetcher("Sitemap Harvester Bot v1.0", 30*time.Second)
	} else {
		f = fetcher.FileFetcher{}
	}

	walker := sitemap.NewWalker(location, f, sitemap.Options{})

	hosts := map[string]int{}
	freqs := map[string]int{}
	years := map[int]int{}
	withPriority := 0

	for entry, err := range walker.All(context.Background()) {
		if err != nil {
			log.Printf("Error during walk: %v", err)
			continue
		}

		if u, err := url.Parse(entry.Location); err == nil {
			hosts[u.Host]++
		}
		if entry.ChangeFreq != sitemap.FreqUnset {
			freqs[entry.ChangeFreq.String()]++
		}
		if !entry.LastModTime.IsZero() {
			years[entry.LastModTime.Year()]++
		}
		if entry.Priority != nil {
			withPriority++
		}
	}

	stats := walker.Stats()
	fmt.Printf("Total URLs found: %d (from %d documents, %d records skipped, %d errors)\n\n",
		stats.Entries, stats.DocumentsFetched, stats.SkippedRecords, stats.Errors)

	fmt.Println("--- URLs per host ---")
	printCounts(hosts)

	fmt.Println("\n--- Change frequencies ---")
	printCounts(freqs)

	fmt.Println("\n--- Last modification years ---")
	var yearKeys []int
	for y := range years {
		yearKeys = append(yearKeys, y)
	}
	sort.Ints(yearKeys)
	for _, y := range yearKeys {
		fmt.Printf("%d: %d\n", y, years[y])
	}

	fmt.Printf("\nURLs carrying a priority: %d\n", withPriority)
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	for _, k := range keys {
		fmt.Printf("%s: %d\n", k, counts[k])
	}
}
