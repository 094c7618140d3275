package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// ArchiveServer serves a single archive file over HTTP and counts requests.
type ArchiveServer struct {
	*httptest.Server
	name string
	hits atomic.Int64
}

// NewArchiveServer serves the file at archivePath under its base name. Any
// other path is answered with 404. The server is closed when the test ends.
func NewArchiveServer(t *testing.T, archivePath string) *ArchiveServer {
	s := &ArchiveServer{name: filepath.Base(archivePath)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.URL.Path != "/"+s.name {
			http.NotFound(w, r)
			return
		}
		data, err := os.ReadFile(archivePath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(s.Close)
	return s
}

// ArchiveURL is the URL the archive is served at.
func (s *ArchiveServer) ArchiveURL() string {
	return s.URL + "/" + s.name
}

// Hits is the number of requests the server has received.
func (s *ArchiveServer) Hits() int64 {
	return s.hits.Load()
}
