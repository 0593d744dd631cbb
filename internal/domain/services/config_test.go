package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

type MockConfigStore struct {
	mock.Mock
}

func (m *MockConfigStore) Read(path string) (*entities.Config, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Config), args.Error(1)
}

func (m *MockConfigStore) Find(dir string) string {
	args := m.Called(dir)
	return args.String(0)
}

func (m *MockConfigStore) Bootstrap() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type MockConfigMerger struct {
	mock.Mock
}

func (m *MockConfigMerger) Merge(configs ...*entities.Config) *entities.Config {
	args := m.Called(configs)
	return args.Get(0).(*entities.Config)
}

func (m *MockConfigMerger) ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config {
	args := m.Called(config, flags)
	return args.Get(0).(*entities.Config)
}

func (m *MockConfigMerger) ApplyEnvVars(config *entities.Config) *entities.Config {
	args := m.Called(config)
	return args.Get(0).(*entities.Config)
}

func mergeOfLen(n int) interface{} {
	return mock.MatchedBy(func(configs []*entities.Config) bool {
		return len(configs) == n
	})
}

func TestConfigResolver_Resolve(t *testing.T) {
	t.Run("no config file anywhere", func(t *testing.T) {
		store := &MockConfigStore{}
		merger := &MockConfigMerger{}

		defaults := &entities.Config{Server: entities.ServerConfig{Port: 8080}}
		withEnv := &entities.Config{Server: entities.ServerConfig{Port: 8081}}
		final := &entities.Config{Server: entities.ServerConfig{Port: 9000}}
		flags := map[string]interface{}{"port": 9000}

		store.On("Find", "/proj").Return("")
		merger.On("Merge", mergeOfLen(0)).Return(defaults)
		merger.On("ApplyEnvVars", defaults).Return(withEnv)
		merger.On("ApplyFlags", withEnv, flags).Return(final)

		resolver := NewConfigResolver(store, merger)
		got, err := resolver.Resolve("/proj", "", flags)

		require.NoError(t, err)
		assert.Equal(t, final, got)
		store.AssertNotCalled(t, "Read", mock.Anything)
		store.AssertExpectations(t)
		merger.AssertExpectations(t)
	})

	t.Run("discovered file layers over defaults", func(t *testing.T) {
		store := &MockConfigStore{}
		merger := &MockConfigMerger{}

		defaults := &entities.Config{Server: entities.ServerConfig{Port: 8080}}
		fileCfg := &entities.Config{Generation: entities.GenerationConfig{Locale: "ko"}}
		merged := &entities.Config{
			Server:     entities.ServerConfig{Port: 8080},
			Generation: entities.GenerationConfig{Locale: "ko"},
		}

		store.On("Find", "/proj").Return("/proj/deckhand.toml")
		store.On("Read", "/proj/deckhand.toml").Return(fileCfg, nil)
		merger.On("Merge", mergeOfLen(0)).Return(defaults).Once()
		merger.On("Merge", mergeOfLen(2)).Return(merged).Once()
		merger.On("ApplyEnvVars", merged).Return(merged)
		merger.On("ApplyFlags", merged, map[string]interface{}(nil)).Return(merged)

		resolver := NewConfigResolver(store, merger)
		got, err := resolver.Resolve("/proj", "", nil)

		require.NoError(t, err)
		assert.Equal(t, merged, got)
		store.AssertExpectations(t)
		merger.AssertExpectations(t)
	})

	t.Run("explicit path skips discovery", func(t *testing.T) {
		store := &MockConfigStore{}
		merger := &MockConfigMerger{}

		defaults := &entities.Config{}
		fileCfg := &entities.Config{Server: entities.ServerConfig{Port: 7000}}

		store.On("Read", "/etc/deckhand/config.toml").Return(fileCfg, nil)
		merger.On("Merge", mergeOfLen(0)).Return(defaults).Once()
		merger.On("Merge", mergeOfLen(2)).Return(fileCfg).Once()
		merger.On("ApplyEnvVars", fileCfg).Return(fileCfg)
		merger.On("ApplyFlags", fileCfg, map[string]interface{}(nil)).Return(fileCfg)

		resolver := NewConfigResolver(store, merger)
		got, err := resolver.Resolve("/proj", "/etc/deckhand/config.toml", nil)

		require.NoError(t, err)
		assert.Equal(t, fileCfg, got)
		store.AssertNotCalled(t, "Find", mock.Anything)
	})

	t.Run("unreadable file is an error", func(t *testing.T) {
		store := &MockConfigStore{}
		merger := &MockConfigMerger{}

		store.On("Read", "/missing.toml").Return(nil, errors.New("open /missing.toml: no such file"))
		merger.On("Merge", mergeOfLen(0)).Return(&entities.Config{})

		resolver := NewConfigResolver(store, merger)
		_, err := resolver.Resolve("/proj", "/missing.toml", nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading config file")
	})

	t.Run("invalid resolved config is an error", func(t *testing.T) {
		store := &MockConfigStore{}
		merger := &MockConfigMerger{}

		broken := &entities.Config{Server: entities.ServerConfig{Port: -1}}

		store.On("Find", "/proj").Return("")
		merger.On("Merge", mergeOfLen(0)).Return(&entities.Config{})
		merger.On("ApplyEnvVars", mock.Anything).Return(&entities.Config{})
		merger.On("ApplyFlags", mock.Anything, mock.Anything).Return(broken)

		resolver := NewConfigResolver(store, merger)
		_, err := resolver.Resolve("/proj", "", nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolved config is invalid")
	})
}

func TestConfigResolver_Defaults(t *testing.T) {
	store := &MockConfigStore{}
	merger := &MockConfigMerger{}

	defaults := &entities.Config{Server: entities.ServerConfig{Host: "localhost", Port: 8080}}
	merger.On("Merge", mergeOfLen(0)).Return(defaults)

	resolver := NewConfigResolver(store, merger)
	assert.Equal(t, defaults, resolver.Defaults())
}

func TestConfigResolver_Bootstrap(t *testing.T) {
	t.Run("returns the written path", func(t *testing.T) {
		store := &MockConfigStore{}
		store.On("Bootstrap").Return("/home/u/.config/deckhand/config.toml", nil)

		resolver := NewConfigResolver(store, &MockConfigMerger{})
		path, err := resolver.Bootstrap()

		require.NoError(t, err)
		assert.Equal(t, "/home/u/.config/deckhand/config.toml", path)
	})

	t.Run("propagates store errors", func(t *testing.T) {
		store := &MockConfigStore{}
		store.On("Bootstrap").Return("", errors.New("config already exists"))

		resolver := NewConfigResolver(store, &MockConfigMerger{})
		_, err := resolver.Bootstrap()

		require.Error(t, err)
	})
}
