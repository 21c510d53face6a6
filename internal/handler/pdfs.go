package handler

import (
	"net/http"
	"os"
)

// PDFs serves rendered care plans from dir. Directory listings are refused.
// Mount with http.StripPrefix so paths are relative to dir.
func PDFs(dir string) http.Handler {
	return http.FileServer(filesOnly{http.Dir(dir)})
}

// filesOnly hides directories from http.FileServer.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
