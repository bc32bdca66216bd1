package sync

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/updrive/updrive/internal/utils"
)

const fingerprintCacheSize = 4096

// Fingerprinter computes the change-detection fingerprint of a watched
// file. The default derives it from size and mtime, which is cheap and
// catches every write the watcher can see. Content mode hashes the file
// instead and caches digests keyed by path+size+mtime, so an unchanged
// file is never re-read.
type Fingerprinter struct {
	contentHash bool
	cache       *lru.Cache[string, string]
}

func NewFingerprinter(contentHash bool) *Fingerprinter {
	cache, _ := lru.New[string, string](fingerprintCacheSize)
	return &Fingerprinter{
		contentHash: contentHash,
		cache:       cache,
	}
}

// File returns the fingerprint of the file at absPath.
func (f *Fingerprinter) File(absPath string) (string, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", absPath)
	}

	statKey := fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
	if !f.contentHash {
		return statKey, nil
	}

	cacheKey := absPath + "|" + statKey
	if digest, ok := f.cache.Get(cacheKey); ok {
		return digest, nil
	}

	digest, err := utils.FileHash(absPath)
	if err != nil {
		return "", err
	}
	f.cache.Add(cacheKey, digest)
	return digest, nil
}
