package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/fitplan/internal/domain"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(DateLayout, s, time.Local)
	require.NoError(t, err)
	return ts
}

func openWorkouts(t *testing.T, fs afero.Fs) *WorkoutStore {
	t.Helper()
	s, err := OpenWorkouts(fs, "/data/workouts.txt", zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestWorkoutStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openWorkouts(t, fs)
	assert.Empty(t, s.All())

	records := []domain.WorkoutRecord{
		domain.NewWorkoutRecord("Squats", at(t, "2024-03-01 07:30:00"), 6, "3 sets × 10 reps @ 135 lbs", ""),
		domain.NewWorkoutRecord("Run", at(t, "2024-03-02 18:00:00"), 30, "30 minutes", "easy pace"),
		domain.NewWorkoutRecord("Plan", at(t, "2024-03-03 09:15:00"), 0, "Day 1 | legs\nDay 2 | rest", `C:\notes`),
	}
	for _, r := range records {
		require.NoError(t, s.Add(r))
	}
	assert.Len(t, s.All(), 3)
	assert.True(t, s.All()[0].Equal(records[0]))

	reloaded := openWorkouts(t, fs)
	got := reloaded.All()
	require.Len(t, got, len(records))
	for i := range records {
		assert.True(t, records[i].Equal(got[i]), "record %d: %+v != %+v", i, records[i], got[i])
	}
}

func TestWorkoutStoreSkipsCorruptLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := WorkoutHeader + "\n" +
		"2024-03-01 07:30:00|Squats|6|3 sets × 10 reps|\n" +
		"\n" +
		"   \n" +
		"not-a-date|Bench|10|x|y\n" +
		"2024-03-02 08:00:00|Bench|ten|x|y\n" +
		"2024-03-02 08:00:00|Too|few\n" +
		"2024-03-03 09:00:00|Row|12|desc|notes with | pipe\n"
	require.NoError(t, afero.WriteFile(fs, "/data/workouts.txt", []byte(content), 0o644))

	s := openWorkouts(t, fs)
	got := s.All()
	require.Len(t, got, 2)
	assert.Equal(t, "Squats", got[0].Name)
	assert.Equal(t, "Row", got[1].Name)
	assert.Equal(t, "notes with | pipe", got[1].Notes)
}

func TestWorkoutStoreLoadsVeryLongLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	huge := strings.Repeat("x", 5<<20)
	content := WorkoutHeader + "\n" +
		"2024-03-01 07:30:00|Squats|6|d|\n" +
		"2024-03-02 07:30:00|Huge|0|" + huge + "|\n" +
		"2024-03-03 07:30:00|Row|12|d|\n" +
		"2024-03-04 07:30:00|Bench|10|d|\r\n"
	require.NoError(t, afero.WriteFile(fs, "/data/workouts.txt", []byte(content), 0o644))

	s := openWorkouts(t, fs)
	require.Equal(t, 4, s.Len())
	require.NoError(t, s.Add(domain.NewWorkoutRecord("New", at(t, "2024-03-05 07:30:00"), 5, "d", "")))

	got := openWorkouts(t, fs).All()
	names := make([]string, len(got))
	for i, r := range got {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Squats", "Huge", "Row", "Bench", "New"}, names)
	assert.Len(t, got[1].Description, len(huge))
	assert.Equal(t, "", got[3].Notes)
}

// unreadableFs fails every Open while err is set.
type unreadableFs struct {
	afero.Fs
	err error
}

func (f *unreadableFs) Open(name string) (afero.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Fs.Open(name)
}

func TestWorkoutStoreRefusesWritesAfterFailedLoad(t *testing.T) {
	mem := afero.NewMemMapFs()
	content := WorkoutHeader + "\n2024-03-01 07:30:00|Squats|6|d|\n"
	require.NoError(t, afero.WriteFile(mem, "/data/workouts.txt", []byte(content), 0o644))

	fs := &unreadableFs{Fs: mem, err: errors.New("input/output error")}
	s, err := OpenWorkouts(fs, "/data/workouts.txt", zerolog.Nop())
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Empty(t, s.All())

	rec := domain.NewWorkoutRecord("Row", at(t, "2024-03-02 07:30:00"), 12, "d", "")
	assert.ErrorIs(t, s.Add(rec), ErrNotLoaded)
	assert.ErrorIs(t, s.Remove(rec), ErrNotLoaded)
	assert.ErrorIs(t, s.Save(nil), ErrNotLoaded)
	assert.Empty(t, s.All())

	data, err := afero.ReadFile(mem, "/data/workouts.txt")
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	// Once the file is readable again the next write loads it first.
	fs.err = nil
	require.NoError(t, s.Add(rec))
	got := openWorkouts(t, mem).All()
	require.Len(t, got, 2)
	assert.Equal(t, "Squats", got[0].Name)
	assert.Equal(t, "Row", got[1].Name)
}

func TestWorkoutStoreHeaderAlwaysSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "2024-03-01 07:30:00|Squats|6|d|n\n2024-03-02 07:30:00|Lunges|6|d|n\n"
	require.NoError(t, afero.WriteFile(fs, "/data/workouts.txt", []byte(content), 0o644))

	got := openWorkouts(t, fs).All()
	require.Len(t, got, 1)
	assert.Equal(t, "Lunges", got[0].Name)
}

func TestWorkoutStoreMissingFile(t *testing.T) {
	s, err := OpenWorkouts(afero.NewMemMapFs(), "/nowhere/workouts.txt", zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, s.All())
	assert.Empty(t, s.All())
	assert.Equal(t, 0, s.Len())
}

func TestWorkoutStoreAllIsACopy(t *testing.T) {
	s := openWorkouts(t, afero.NewMemMapFs())
	require.NoError(t, s.Add(domain.NewWorkoutRecord("Run", time.Now(), 20, "20 minutes", "")))

	all := s.All()
	all[0].Name = "changed"
	assert.Equal(t, "Run", s.All()[0].Name)
}

func TestWorkoutStoreRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openWorkouts(t, fs)
	ts := at(t, "2024-03-01 07:30:00")
	a := domain.NewWorkoutRecord("Run", ts, 20, "20 minutes", "")
	b := domain.NewWorkoutRecord("Swim", ts, 40, "40 minutes", "")
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))
	require.NoError(t, s.Add(a))

	require.NoError(t, s.Remove(a))
	got := s.All()
	require.Len(t, got, 2)
	assert.Equal(t, "Swim", got[0].Name)
	assert.Equal(t, "Run", got[1].Name)

	require.NoError(t, s.Remove(domain.NewWorkoutRecord("Yoga", ts, 1, "", "")))
	assert.Len(t, s.All(), 2)
	assert.Len(t, openWorkouts(t, fs).All(), 2)
}

func TestWorkoutStoreRecent(t *testing.T) {
	s := openWorkouts(t, afero.NewMemMapFs())
	t2 := domain.NewWorkoutRecord("T2", at(t, "2024-03-02 00:00:00"), 1, "", "")
	t1 := domain.NewWorkoutRecord("T1", at(t, "2024-03-01 00:00:00"), 1, "", "")
	t3 := domain.NewWorkoutRecord("T3", at(t, "2024-03-03 00:00:00"), 1, "", "")
	require.NoError(t, s.Save([]domain.WorkoutRecord{t2, t1, t3}))

	tests := []struct {
		n        int
		expected []string
	}{
		{2, []string{"T3", "T2"}},
		{10, []string{"T3", "T2", "T1"}},
		{0, []string{}},
		{-1, []string{}},
	}

	for _, tt := range tests {
		names := []string{}
		for _, r := range s.Recent(tt.n) {
			names = append(names, r.Name)
		}
		assert.Equal(t, tt.expected, names, "Recent(%d)", tt.n)
	}

	// stored order is untouched
	assert.Equal(t, "T2", s.All()[0].Name)
}

func TestWorkoutStoreByDateRange(t *testing.T) {
	s := openWorkouts(t, afero.NewMemMapFs())
	start := at(t, "2024-03-01 00:00:00")
	end := at(t, "2024-03-07 23:59:59")
	require.NoError(t, s.Save([]domain.WorkoutRecord{
		domain.NewWorkoutRecord("end", end, 1, "", ""),
		domain.NewWorkoutRecord("before", start.Add(-time.Second), 1, "", ""),
		domain.NewWorkoutRecord("start", start, 1, "", ""),
		domain.NewWorkoutRecord("middle", at(t, "2024-03-04 12:00:00"), 1, "", ""),
		domain.NewWorkoutRecord("after", end.Add(time.Second), 1, "", ""),
	}))

	var names []string
	for _, r := range s.ByDateRange(start, end) {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"end", "start", "middle"}, names)
	assert.Empty(t, s.ByDateRange(end, start))
}

func TestWorkoutStoreSaveFailureKeepsMemory(t *testing.T) {
	base := afero.NewMemMapFs()
	seed := openWorkouts(t, base)
	first := domain.NewWorkoutRecord("Run", at(t, "2024-03-01 07:30:00"), 20, "20 minutes", "")
	require.NoError(t, seed.Add(first))

	ro := afero.NewReadOnlyFs(base)
	s := openWorkouts(t, ro)
	require.Len(t, s.All(), 1)

	second := domain.NewWorkoutRecord("Swim", at(t, "2024-03-02 07:30:00"), 40, "40 minutes", "")
	assert.Error(t, s.Add(second))
	assert.Len(t, s.All(), 2)

	assert.Error(t, s.Save(nil))
	assert.Len(t, s.All(), 2)

	// file went stale
	assert.Len(t, openWorkouts(t, base).All(), 1)
}

func TestWorkoutStoreNoTempFilesLeft(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openWorkouts(t, fs)
	require.NoError(t, s.Add(domain.NewWorkoutRecord("Run", time.Now(), 20, "", "")))

	entries, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "workouts.txt", entries[0].Name())

	data, err := afero.ReadFile(fs, "/data/workouts.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), WorkoutHeader+"\n")
}

func TestWorkoutCodec(t *testing.T) {
	c := WorkoutCodec{Location: time.UTC}
	rec := domain.WorkoutRecord{
		Name:            "Row|Erg",
		Timestamp:       time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		DurationMinutes: 25,
		Description:     "line1\nline2",
		Notes:           `back\slash`,
	}

	line := c.Encode(rec)
	assert.Equal(t, `2024-05-06 07:08:09|Row\|Erg|25|line1\nline2|back\\slash`, line)

	got, err := c.Decode(line)
	require.NoError(t, err)
	assert.True(t, rec.Equal(got))

	got, err = c.Decode(" 2024-05-06 07:08:09 |Run| 30 |30 minutes|")
	require.NoError(t, err)
	assert.Equal(t, 30, got.DurationMinutes)
	assert.Equal(t, "", got.Notes)

	_, err = c.Decode("2024-05-06 07:08:09|Run|30|desc")
	assert.Error(t, err)
}

func TestSplitFields(t *testing.T) {
	tests := []struct {
		line     string
		limit    int
		expected []string
	}{
		{"a|b|c", 0, []string{"a", "b", "c"}},
		{"a|b|c|d", 3, []string{"a", "b", "c|d"}},
		{`a\|b|c`, 0, []string{"a|b", "c"}},
		{`a\\|b`, 0, []string{`a\`, "b"}},
		{`x\ny\rz`, 0, []string{"x\ny\rz"}},
		{`C:\temp|x`, 0, []string{`C:\temp`, "x"}},
		{"", 5, []string{""}},
		{`trailing\`, 0, []string{`trailing\`}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SplitFields(tt.line, tt.limit), "SplitFields(%q, %d)", tt.line, tt.limit)
	}
}

func TestWorkoutCodecLegacyLines(t *testing.T) {
	// Lines written before fields were escaped.
	tests := []struct {
		name  string
		line  string
		desc  string
		notes string
	}{
		{"plain", `2024-03-01 07:30:00|Run|30|30 minutes|easy`, "30 minutes", "easy"},
		{"other backslashes kept", `2024-03-01 07:30:00|Copy|5|C:\plans\week|a\tb`, `C:\plans\week`, `a\tb`},
		{"escape sequence decoded", `2024-03-01 07:30:00|Copy|5|d|C:\new`, "d", "C:\new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := WorkoutCodec{}.Decode(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.desc, rec.Description)
			assert.Equal(t, tt.notes, rec.Notes)
		})
	}
}

func TestEscapeFieldRoundTrip(t *testing.T) {
	values := []string{"plain", "a|b", "multi\nline\r\n", `\|`, `\n literal`, ""}
	line := JoinFields(values...)
	assert.NotContains(t, line, "\n")
	assert.Equal(t, values, SplitFields(line, len(values)))
}
