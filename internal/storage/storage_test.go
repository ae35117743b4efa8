package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hailam/clickchess/internal/game"
)

func openTest(t *testing.T) *Storage {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func summary(id string, result game.Result, plies int, finished time.Time) game.Summary {
	sum := game.Summary{
		ID:            id,
		Started:       finished.Add(-10 * time.Minute),
		Finished:      finished,
		Result:        result,
		FinalPosition: "4k3/8/8/8/8/8/8/4K3 w - - 0 1",
	}
	for i := 0; i < plies; i++ {
		sum.Plies = append(sum.Plies, "e2e4")
		sum.ScoreHistory = append(sum.ScoreHistory, i*10)
	}
	return sum
}

func TestStorage(t *testing.T) {
	s := openTest(t)

	t.Run("DefaultPreferences", func(t *testing.T) {
		prefs, err := s.LoadPreferences()
		if err != nil {
			t.Fatal(err)
		}
		if prefs.PlayerName != "Player" {
			t.Errorf("Expected player name 'Player', got '%s'", prefs.PlayerName)
		}
		if prefs.EngineMoveTime != 3*time.Second || prefs.EngineEnabled || !prefs.SoundEnabled {
			t.Errorf("unexpected defaults: %+v", prefs)
		}
	})

	t.Run("SavePreferences", func(t *testing.T) {
		want := &Preferences{PlayerName: "Ada", EngineMoveTime: time.Second, EngineEnabled: true, Flipped: true}
		if err := s.SavePreferences(want); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadPreferences()
		if err != nil {
			t.Fatal(err)
		}
		if got.LastPlayed.IsZero() {
			t.Error("LastPlayed not stamped")
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("preferences (-want +got):\n%s", diff)
		}
	})

	t.Run("FirstLaunch", func(t *testing.T) {
		first, err := s.IsFirstLaunch()
		if err != nil || !first {
			t.Fatalf("IsFirstLaunch() = %v, %v", first, err)
		}
		if err := s.MarkFirstLaunchComplete(); err != nil {
			t.Fatal(err)
		}
		if first, _ := s.IsFirstLaunch(); first {
			t.Error("still first launch after marking")
		}
	})
}

func TestRecordGame(t *testing.T) {
	s := openTest(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	games := []game.Summary{
		summary("a", game.ResultWhiteWins, 7, base),
		summary("b", game.ResultBlackWins, 21, base.Add(time.Hour)),
		summary("c", game.ResultUnfinished, 2, base.Add(2*time.Hour)),
	}
	for _, g := range games {
		if err := s.RecordGame(g); err != nil {
			t.Fatalf("RecordGame(%s): %v", g.ID, err)
		}
	}
	// Recording again must not double count.
	if err := s.RecordGame(games[0]); err != nil {
		t.Fatal(err)
	}

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	want := &GameStats{
		GamesPlayed:   3,
		WhiteWins:     1,
		BlackWins:     1,
		Unfinished:    1,
		TotalPlies:    30,
		LongestGame:   21,
		TotalPlayTime: 30 * time.Minute,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if got := stats.AveragePlies(); got != 10 {
		t.Errorf("AveragePlies() = %v, want 10", got)
	}

	got, err := s.LoadGame("b")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(games[1], got); diff != "" {
		t.Errorf("LoadGame (-want +got):\n%s", diff)
	}
	if _, err := s.LoadGame("zzz"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("LoadGame(zzz) = %v, want ErrGameNotFound", err)
	}

	list, err := s.ListGames(2)
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{}
	for _, g := range list {
		ids = append(ids, g.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("ListGames order (-want +got):\n%s", diff)
	}
}

func TestStorageObservesSession(t *testing.T) {
	s := openTest(t)
	sess := game.NewSession(game.WithObserver(s))

	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if _, err := sess.ApplyMove(mv); err != nil {
			t.Fatalf("ApplyMove(%s): %v", mv, err)
		}
	}
	id := sess.Snapshot().ID

	rec, err := s.LoadGame(id)
	if err != nil {
		t.Fatalf("fool's mate not recorded: %v", err)
	}
	if rec.Result != game.ResultBlackWins || len(rec.Plies) != 4 {
		t.Errorf("record = %+v", rec)
	}
}

func TestDataPaths(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	dbDir, err := GetDatabaseDir(dir)
	if err != nil {
		t.Fatalf("GetDatabaseDir failed: %v", err)
	}
	if dbDir != filepath.Join(dir, "db") {
		t.Errorf("dbDir = %s", dbDir)
	}
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		t.Errorf("Database directory was not created: %s", dbDir)
	}

	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dataDir, err := GetDataDir("")
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if filepath.Base(dataDir) != appName {
		t.Errorf("data dir %s does not end in %s", dataDir, appName)
	}
}

func TestDataDirOverrideIsUsedAsIs(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)
	override := filepath.Join(t.TempDir(), "games")

	got, err := GetDataDir(override + string(filepath.Separator))
	if err != nil {
		t.Fatalf("GetDataDir(%q): %v", override, err)
	}
	if got != override {
		t.Errorf("GetDataDir = %s, want the override %s with no %s subdirectory", got, override, appName)
	}
	if fi, err := os.Stat(override); err != nil || !fi.IsDir() {
		t.Errorf("override not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(xdg, appName)); !os.IsNotExist(err) {
		t.Errorf("default directory touched despite the override: %v", err)
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.RecordGame(summary("disk", game.ResultWhiteWins, 3, time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.LoadGame("disk"); err != nil {
		t.Errorf("record lost across reopen: %v", err)
	}
}
