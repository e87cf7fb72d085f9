package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkHuntBreakthrough  BookmarkType = "hunt_breakthrough"
	BookmarkCarnivoreRecovery BookmarkType = "carnivore_recovery"
	BookmarkHerbivoreCrash    BookmarkType = "herbivore_crash"
	BookmarkExtinction        BookmarkType = "extinction"
	BookmarkStableEcosystem   BookmarkType = "stable_ecosystem"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Tick        int64
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentCarnMin      int // minimum carnivore count in recent history
	recentHerbPeak     int // peak herbivore count in recent history
	stableWindowsCount int // consecutive windows with stable populations
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable ecosystem detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Hunt breakthrough: kills > 2x rolling average
		if b := bd.checkHuntBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Carnivore recovery: was <=3, now >=3x that
		if b := bd.checkCarnivoreRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Herbivore crash: dropped >30% from recent peak
		if b := bd.checkHerbivoreCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Extinction: a diet class present last window is gone
		if b := bd.checkExtinction(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Stable ecosystem: both populations present with low variance over 5+ windows
		if b := bd.checkStableEcosystem(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Update history
	bd.addToHistory(stats)

	// Track carnivore minimum and herbivore peak
	if stats.Carnivores < bd.recentCarnMin || bd.recentCarnMin == 0 {
		bd.recentCarnMin = stats.Carnivores
	}
	if stats.Herbivores > bd.recentHerbPeak {
		bd.recentHerbPeak = stats.Herbivores
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkHuntBreakthrough(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var totalKills int
	for _, h := range history {
		totalKills += h.Kills
	}
	avgKills := float64(totalKills) / float64(len(history))
	if avgKills == 0 {
		return nil
	}

	if float64(stats.Kills) > avgKills*2.0 && stats.Kills >= 3 {
		return &Bookmark{
			Type:        BookmarkHuntBreakthrough,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d kills is %.1fx average (%.1f)", stats.Kills, float64(stats.Kills)/avgKills, avgKills),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkCarnivoreRecovery(stats WindowStats) *Bookmark {
	if bd.recentCarnMin == 0 || bd.recentCarnMin > 3 {
		return nil
	}

	threshold := bd.recentCarnMin * 3
	if stats.Carnivores >= threshold && stats.Carnivores >= 6 {
		// Reset the minimum after triggering
		oldMin := bd.recentCarnMin
		bd.recentCarnMin = stats.Carnivores

		return &Bookmark{
			Type:        BookmarkCarnivoreRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Carnivore population recovered from %d to %d", oldMin, stats.Carnivores),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkHerbivoreCrash(stats WindowStats) *Bookmark {
	if bd.recentHerbPeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Herbivores)/float64(bd.recentHerbPeak)
	if dropPercent > 0.30 && stats.Herbivores < bd.recentHerbPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentHerbPeak
		bd.recentHerbPeak = stats.Herbivores

		return &Bookmark{
			Type:        BookmarkHerbivoreCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Herbivores crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Herbivores),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	prev := history[(bd.historyIdx+len(history)-1)%len(history)]

	var lost string
	switch {
	case prev.Herbivores > 0 && stats.Herbivores == 0:
		lost = "herbivores"
	case prev.Carnivores > 0 && stats.Carnivores == 0:
		lost = "carnivores"
	default:
		return nil
	}
	return &Bookmark{
		Type:        BookmarkExtinction,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("All %s died out", lost),
	}
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	// Need both populations present
	if stats.Herbivores < 10 || stats.Carnivores < 3 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	// Check variance in recent windows
	herbs := make([]float64, 0, 4)
	carns := make([]float64, 0, 4)
	for _, h := range history[len(history)-4:] {
		herbs = append(herbs, float64(h.Herbivores))
		carns = append(carns, float64(h.Carnivores))
	}

	// Low variance: coefficient of variation < 20%
	herbCV := squaredCV(herbs)
	carnCV := squaredCV(carns)

	if herbCV < 0.04 && carnCV < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableEcosystem,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable ecosystem with %d herbivores, %d carnivores over 5+ windows", stats.Herbivores, stats.Carnivores),
		}
	}

	return nil
}

// squaredCV returns the squared coefficient of variation of xs.
func squaredCV(xs []float64) float64 {
	mean, variance := stat.PopMeanVariance(xs, nil)
	if mean == 0 {
		return 0
	}
	return variance / (mean * mean)
}
