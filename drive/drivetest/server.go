// Package drivetest provides an in-memory stand-in for the Drive v3 API,
// covering the folder and JSON-file operations the backup client uses.
package drivetest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RemoteFile is a file or folder held by the fake server.
type RemoteFile struct {
	ID           string
	Name         string
	MimeType     string
	Parents      []string
	Trashed      bool
	Content      []byte
	CreatedTime  time.Time
	ModifiedTime time.Time
}

type failure struct {
	status  int
	message string
}

// Server is an httptest server speaking the subset of Drive v3 the client
// uses. It requires a bearer token on every request.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string]*RemoteFile
	nextID   int
	clock    time.Time
	failures []failure
	counts   map[string]int
	tokens   []string
}

// NewServer starts a fake Drive server. Close it when done.
func NewServer() *Server {
	s := &Server{
		files:  make(map[string]*RemoteFile),
		clock:  time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		counts: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Endpoint is the API base URL to pass to drive.Options.
func (s *Server) Endpoint() string {
	return s.URL + "/drive/v3/"
}

// FailNext makes the next n requests fail with status and message.
func (s *Server) FailNext(n, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, failure{status: status, message: message})
	}
}

// Count returns how many requests of a kind were served: "list", "get",
// "download", "create", "upload", "update".
func (s *Server) Count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

// Requests returns the total number of requests received, including rejected ones.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Tokens returns the bearer tokens seen, in order.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// AddFolder seeds a folder and returns its id.
func (s *Server) AddFolder(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(&RemoteFile{Name: name, MimeType: "application/vnd.google-apps.folder"}).ID
}

// AddFile seeds a JSON file in a folder and returns its id.
func (s *Server) AddFile(folderID, name string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(&RemoteFile{Name: name, MimeType: "application/json", Parents: []string{folderID}, Content: content}).ID
}

// Trash marks a file as trashed.
func (s *Server) Trash(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[id]; ok {
		f.Trashed = true
	}
}

// File returns a copy of a stored file.
func (s *Server) File(id string) (RemoteFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return RemoteFile{}, false
	}
	return *f, true
}

// Files returns copies of every stored file named name.
func (s *Server) Files(name string) []RemoteFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RemoteFile
	for _, f := range s.files {
		if f.Name == name {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTime.Before(out[j].CreatedTime) })
	return out
}

// insert assigns an id and a strictly increasing creation time. Callers hold mu.
func (s *Server) insert(f *RemoteFile) *RemoteFile {
	s.nextID++
	s.clock = s.clock.Add(time.Minute)
	f.ID = fmt.Sprintf("file%03d", s.nextID)
	f.CreatedTime = s.clock
	f.ModifiedTime = s.clock
	s.files[f.ID] = f
	return f
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auth := r.Header.Get("Authorization")
	s.tokens = append(s.tokens, strings.TrimPrefix(auth, "Bearer "))
	if !strings.HasPrefix(auth, "Bearer ") || len(auth) == len("Bearer ") {
		writeError(w, http.StatusUnauthorized, "Request is missing required authentication credential.")
		return
	}

	if len(s.failures) > 0 {
		f := s.failures[0]
		s.failures = s.failures[1:]
		writeError(w, f.status, f.message)
		return
	}

	const (
		filesPath  = "/drive/v3/files"
		uploadPath = "/upload/drive/v3/files"
	)

	switch {
	case r.Method == http.MethodGet && r.URL.Path == filesPath:
		s.counts["list"]++
		s.list(w, r)

	case r.Method == http.MethodPost && r.URL.Path == filesPath:
		s.counts["create"]++
		var meta fileJSON
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload received.")
			return
		}
		f := s.insert(&RemoteFile{Name: meta.Name, MimeType: meta.MimeType, Parents: meta.Parents})
		writeJSON(w, toJSON(f))

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, filesPath+"/"):
		id := strings.TrimPrefix(r.URL.Path, filesPath+"/")
		f, ok := s.files[id]
		if !ok {
			writeError(w, http.StatusNotFound, "File not found: "+id+".")
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			s.counts["download"]++
			w.Header().Set("Content-Type", f.MimeType)
			w.Write(f.Content)
			return
		}
		s.counts["get"]++
		writeJSON(w, toJSON(f))

	case r.Method == http.MethodPost && r.URL.Path == uploadPath:
		s.counts["upload"]++
		meta, content, err := readUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, p := range meta.Parents {
			if _, ok := s.files[p]; !ok {
				writeError(w, http.StatusNotFound, "File not found: "+p+".")
				return
			}
		}
		f := s.insert(&RemoteFile{Name: meta.Name, MimeType: meta.MimeType, Parents: meta.Parents, Content: content})
		writeJSON(w, toJSON(f))

	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, uploadPath+"/"):
		s.counts["update"]++
		id := strings.TrimPrefix(r.URL.Path, uploadPath+"/")
		f, ok := s.files[id]
		if !ok {
			writeError(w, http.StatusNotFound, "File not found: "+id+".")
			return
		}
		meta, content, err := readUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if meta.Name != "" {
			f.Name = meta.Name
		}
		s.clock = s.clock.Add(time.Minute)
		f.Content = content
		f.ModifiedTime = s.clock
		writeJSON(w, toJSON(f))

	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	}
}

var clauseRE = regexp.MustCompile(`^(?:(mimeType|name)\s*=\s*'((?:[^'\\]|\\.)*)'|trashed\s*=\s*(true|false)|'((?:[^'\\]|\\.)*)'\s+in\s+parents)$`)

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	var preds []func(*RemoteFile) bool
	if q := r.URL.Query().Get("q"); q != "" {
		for _, clause := range strings.Split(q, " and ") {
			m := clauseRE.FindStringSubmatch(strings.TrimSpace(clause))
			if m == nil {
				writeError(w, http.StatusBadRequest, "Invalid Value: "+clause)
				return
			}
			switch {
			case m[1] == "mimeType":
				v := unescape(m[2])
				preds = append(preds, func(f *RemoteFile) bool { return f.MimeType == v })
			case m[1] == "name":
				v := unescape(m[2])
				preds = append(preds, func(f *RemoteFile) bool { return f.Name == v })
			case m[3] != "":
				v := m[3] == "true"
				preds = append(preds, func(f *RemoteFile) bool { return f.Trashed == v })
			default:
				v := unescape(m[4])
				preds = append(preds, func(f *RemoteFile) bool {
					for _, p := range f.Parents {
						if p == v {
							return true
						}
					}
					return false
				})
			}
		}
	}

	var matched []*RemoteFile
	for _, f := range s.files {
		ok := true
		for _, p := range preds {
			if !p(f) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, f)
		}
	}

	switch r.URL.Query().Get("orderBy") {
	case "createdTime desc":
		sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedTime.After(matched[j].CreatedTime) })
	default:
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	}

	out := struct {
		Files []fileJSON `json:"files"`
	}{Files: []fileJSON{}}
	for _, f := range matched {
		out.Files = append(out.Files, toJSON(f))
	}
	writeJSON(w, out)
}

type fileJSON struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	MimeType     string   `json:"mimeType,omitempty"`
	Parents      []string `json:"parents,omitempty"`
	CreatedTime  string   `json:"createdTime,omitempty"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
	Size         string   `json:"size,omitempty"`
}

func toJSON(f *RemoteFile) fileJSON {
	out := fileJSON{
		ID:           f.ID,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Parents:      f.Parents,
		CreatedTime:  f.CreatedTime.Format(time.RFC3339),
		ModifiedTime: f.ModifiedTime.Format(time.RFC3339),
	}
	if f.Content != nil {
		out.Size = strconv.Itoa(len(f.Content))
	}
	return out
}

// readUpload decodes a multipart/related (metadata + media) or a plain media
// upload body.
func readUpload(r *http.Request) (fileJSON, []byte, error) {
	var meta fileJSON
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return meta, nil, fmt.Errorf("invalid content type: %v", err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		content, err := io.ReadAll(r.Body)
		return meta, content, err
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("missing metadata part: %v", err)
	}
	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		return meta, nil, fmt.Errorf("invalid metadata part: %v", err)
	}

	part, err = mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("missing media part: %v", err)
	}
	content, err := io.ReadAll(part)
	if err != nil {
		return meta, nil, err
	}
	return meta, content, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}
