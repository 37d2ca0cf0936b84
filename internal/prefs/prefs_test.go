package prefs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.sqlite")

	s, err := Open(path)
	require.NoError(t, err)

	_, ok, err := s.Get(ThemeKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ThemeKey, ThemeDark))
	require.NoError(t, s.Set(ThemeKey, ThemeLight))
	require.NoError(t, s.Set(ThemeKey, ThemeDark))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ThemeKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ThemeDark, v)
}

func TestLoadDarkModeDefaultsToLight(t *testing.T) {
	cases := []struct {
		name   string
		stored *string
		want   bool
	}{
		{name: "missing", stored: nil, want: false},
		{name: "light", stored: strPtr(ThemeLight), want: false},
		{name: "dark", stored: strPtr(ThemeDark), want: true},
		{name: "garbage", stored: strPtr("solarized"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewMemoryStore()
			if tc.stored != nil {
				require.NoError(t, s.Set(ThemeKey, *tc.stored))
			}
			got, err := LoadDarkMode(s)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSaveDarkModeWritesThemeValues(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, SaveDarkMode(s, true))
	v, _, _ := s.Get(ThemeKey)
	require.Equal(t, ThemeDark, v)

	require.NoError(t, SaveDarkMode(s, false))
	v, _, _ = s.Get(ThemeKey)
	require.Equal(t, ThemeLight, v)
	require.Equal(t, 2, s.Writes())
}

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingStore) Set(string, string) error         { return errors.New("disk gone") }

func TestThemeHelpersWrapStoreErrors(t *testing.T) {
	_, err := LoadDarkMode(failingStore{})
	require.ErrorContains(t, err, "read theme preference")

	err = SaveDarkMode(failingStore{}, true)
	require.ErrorContains(t, err, "write theme preference")
}

func strPtr(s string) *string { return &s }
