package internal

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const cacheVersion = "1.0"

// CacheManager handles caching of built timelines
type CacheManager struct {
	cacheDir string
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	StorePath    string    `yaml:"store_path"`
	CacheVersion string    `yaml:"cache_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// TimelineIndexEntry describes one cached timeline and the store state it
// was built from
type TimelineIndexEntry struct {
	DocumentID   string    `yaml:"document_id"`
	CommitCount  int       `yaml:"commit_count"`
	EntryCount   int       `yaml:"entry_count"`
	Hasher       string    `yaml:"hasher"`
	StoreModTime time.Time `yaml:"store_mod_time,omitempty"`
	CachedAt     time.Time `yaml:"cached_at"`
}

// TimelineIndex represents the YAML index of all cached timelines
type TimelineIndex struct {
	Timelines []TimelineIndexEntry `yaml:"timelines"`
	Metadata  CacheMetadata        `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the timeline index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "timelines.yaml")
}

// GetTimelinePath returns the path to a document's cached timeline
func (cm *CacheManager) GetTimelinePath(documentID string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("timeline_%s.json", url.PathEscape(documentID)))
}

// IsCacheValid reports whether the cached timeline for doc was built from
// the same store, with the same commit count and hasher
func (cm *CacheManager) IsCacheValid(storePath string, doc Document, hasher string) bool {
	index, err := cm.LoadIndex()
	if err != nil {
		return false
	}

	if index.Metadata.StorePath != storePath || index.Metadata.CacheVersion != cacheVersion {
		return false
	}

	entry := index.find(doc.ID)
	if entry == nil {
		return false
	}
	if entry.CommitCount != doc.CommitCount || entry.Hasher != hasher {
		return false
	}

	if _, err := os.Stat(cm.GetTimelinePath(doc.ID)); err != nil {
		return false
	}
	return true
}

func (idx *TimelineIndex) find(documentID string) *TimelineIndexEntry {
	for i := range idx.Timelines {
		if idx.Timelines[i].DocumentID == documentID {
			return &idx.Timelines[i]
		}
	}
	return nil
}

// LoadIndex loads the timeline index
func (cm *CacheManager) LoadIndex() (*TimelineIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index TimelineIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	return &index, nil
}

// SaveIndex saves the timeline index
func (cm *CacheManager) SaveIndex(index *TimelineIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(cm.GetIndexPath(), data, 0644)
}

// LoadTimeline loads a document's timeline from its cache file
func (cm *CacheManager) LoadTimeline(documentID string) (*Timeline, error) {
	data, err := os.ReadFile(cm.GetTimelinePath(documentID))
	if err != nil {
		return nil, err
	}

	var timeline Timeline
	if err := json.Unmarshal(data, &timeline); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
	}

	return &timeline, nil
}

// SaveTimeline writes the timeline file and records it in the index. An
// index built for another store is replaced.
func (cm *CacheManager) SaveTimeline(timeline *Timeline, storePath string, commitCount int) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(timeline, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}
	if err := os.WriteFile(cm.GetTimelinePath(timeline.DocumentID), data, 0644); err != nil {
		return fmt.Errorf("failed to save timeline: %w", err)
	}

	now := time.Now()
	index, err := cm.LoadIndex()
	if err != nil || index.Metadata.StorePath != storePath || index.Metadata.CacheVersion != cacheVersion {
		if err == nil {
			LogDebug("Replacing cache index built for %s", index.Metadata.StorePath)
		}
		index = &TimelineIndex{
			Timelines: make([]TimelineIndexEntry, 0, 1),
			Metadata: CacheMetadata{
				StorePath:    storePath,
				CacheVersion: cacheVersion,
				CreatedAt:    now,
			},
		}
	}
	index.Metadata.UpdatedAt = now

	entry := TimelineIndexEntry{
		DocumentID:  timeline.DocumentID,
		CommitCount: commitCount,
		EntryCount:  len(timeline.Entries),
		Hasher:      timeline.Metadata.Hasher,
		CachedAt:    now,
	}
	if info, err := os.Stat(storePath); err == nil {
		entry.StoreModTime = info.ModTime()
	}

	if existing := index.find(timeline.DocumentID); existing != nil {
		*existing = entry
	} else {
		index.Timelines = append(index.Timelines, entry)
	}

	return cm.SaveIndex(index)
}

// ClearCache removes every cached timeline and the index
func (cm *CacheManager) ClearCache() error {
	index, err := cm.LoadIndex()
	if err == nil {
		for _, entry := range index.Timelines {
			_ = os.Remove(cm.GetTimelinePath(entry.DocumentID))
		}
	}

	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
