package core

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tabslayer/tabslayer-server/internal/logger"
	"github.com/tabslayer/tabslayer-server/internal/store"
)

// LinkAdder is the part of the vault an import needs.
type LinkAdder interface {
	AddLink(ctx context.Context, raw string) (store.Link, bool)
}

// ImportFile adds every URL listed in filePath, one per line, pausing delay
// between additions so annotation calls stay under the model's quota. Blank
// lines and '#' comments are skipped; Markdown list markers are stripped.
func ImportFile(ctx context.Context, vault LinkAdder, filePath string, delay time.Duration, log logger.Logger) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open import file %s: %w", filePath, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if u := parseImportLine(scanner.Text()); u != "" {
			urls = append(urls, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read import file %s: %w", filePath, err)
	}

	if len(urls) == 0 {
		log.Warn("no URLs found in import file", logger.String("path", filePath))
		return 0, nil
	}
	log.Info("importing links", logger.Int("urls", len(urls)), logger.Duration("delay", delay))

	if delay <= 0 {
		delay = time.Millisecond
	}
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	count := 0
	for i, u := range urls {
		if i > 0 {
			select {
			case <-ctx.Done():
				return count, ctx.Err()
			case <-ticker.C:
			}
		}

		// A link already started finishes with real metadata even if ctx is cancelled.
		link, ok := vault.AddLink(context.WithoutCancel(ctx), u)
		if !ok {
			continue
		}
		count++
		log.Debug("imported link", logger.String("url", link.URL), logger.String("id", link.ID))
		if count%10 == 0 || count == len(urls) {
			log.Infof("Imported %d/%d links...", count, len(urls))
		}
	}
	return count, nil
}

func parseImportLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):])
		}
	}
	return line
}
