package cache

import "sort"

// Cleaner decides which cached fingerprints to evict during Dump, given the
// current metadata index and its total on-disk size. It returns the
// fingerprints to remove; Manager deletes their .qdc files and metadata
// entries afterward.
type Cleaner interface {
	Evict(entries map[string]*KernelCacheMeta, totalSize int64) []string
}

// SizeBoundCleaner evicts least-recently-used entries until TotalSize fits
// under MaxBytes. A zero MaxBytes disables eviction.
type SizeBoundCleaner struct {
	MaxBytes int64
}

func (c *SizeBoundCleaner) Evict(entries map[string]*KernelCacheMeta, totalSize int64) []string {
	if c.MaxBytes <= 0 || totalSize <= c.MaxBytes {
		return nil
	}
	type row struct {
		fp   string
		meta *KernelCacheMeta
	}
	rows := make([]row, 0, len(entries))
	for fp, m := range entries {
		rows = append(rows, row{fp, m})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].meta.LastUsedAt != rows[j].meta.LastUsedAt {
			return rows[i].meta.LastUsedAt < rows[j].meta.LastUsedAt
		}
		return rows[i].fp < rows[j].fp
	})

	var evicted []string
	for _, r := range rows {
		if totalSize <= c.MaxBytes {
			break
		}
		evicted = append(evicted, r.fp)
		totalSize -= r.meta.Size
	}
	return evicted
}

// LRUCountCleaner keeps at most MaxEntries cached kernels, evicting the
// least-recently-used beyond that count regardless of size.
type LRUCountCleaner struct {
	MaxEntries int
}

func (c *LRUCountCleaner) Evict(entries map[string]*KernelCacheMeta, _ int64) []string {
	if c.MaxEntries <= 0 || len(entries) <= c.MaxEntries {
		return nil
	}
	type row struct {
		fp   string
		meta *KernelCacheMeta
	}
	rows := make([]row, 0, len(entries))
	for fp, m := range entries {
		rows = append(rows, row{fp, m})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].meta.LastUsedAt != rows[j].meta.LastUsedAt {
			return rows[i].meta.LastUsedAt < rows[j].meta.LastUsedAt
		}
		return rows[i].fp < rows[j].fp
	})

	n := len(rows) - c.MaxEntries
	evicted := make([]string, 0, n)
	for i := 0; i < n; i++ {
		evicted = append(evicted, rows[i].fp)
	}
	return evicted
}
