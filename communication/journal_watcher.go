package communication

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DreamRecord is one parsed journal line.
type DreamRecord struct {
	Timestamp string `json:"timestamp"`
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
}

var journalLineRegex = regexp.MustCompile(`^\[([^\]]+)\] #(\d+) (\S+)$`)

// WatchJournal streams journal records to broadcast: first everything
// already in the file, then every appended line as it arrives. It blocks
// until the watcher fails or stop is closed.
func WatchJournal(path string, broadcast func(DreamRecord), stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("failed to create journal watcher")
		return
	}
	defer watcher.Close()

	// Create file if it doesn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		file, err := os.Create(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to create journal file")
			return
		}
		file.Close()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to read journal file")
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		if line == "" {
			continue
		}
		processJournalLine(line, broadcast)
	}

	if err := watcher.Add(path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to watch journal file")
		return
	}

	// Track last size to deliver only appended content.
	lastSize := len(content)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}

			content, err := os.ReadFile(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("failed to read journal after change")
				continue
			}
			if len(content) <= lastSize {
				continue
			}

			for _, line := range strings.Split(string(content[lastSize:]), "\n") {
				if line == "" {
					continue
				}
				processJournalLine(line, broadcast)
			}
			lastSize = len(content)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("journal watcher error")

		case <-stop:
			return
		}
	}
}

func processJournalLine(line string, broadcast func(DreamRecord)) {
	matches := journalLineRegex.FindStringSubmatch(line)
	if len(matches) != 4 {
		log.Warn().Str("line", line).Msg("skipping malformed journal line")
		return
	}

	height, err := strconv.ParseUint(matches[2], 10, 64)
	if err != nil {
		log.Warn().Err(err).Str("line", line).Msg("failed to parse journal height")
		return
	}

	broadcast(DreamRecord{
		Timestamp: matches[1],
		Height:    height,
		Hash:      matches[3],
	})
}
