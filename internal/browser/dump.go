package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"orderscan/internal/dom"
)

// pageDumps writes numbered html files to a directory, one per loaded page.
type pageDumps struct {
	directory string
	mutex     sync.Mutex
	count     int
}

func newPageDumps(dir string) (*pageDumps, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return nil, fmt.Errorf("create dump directory: %w", err)
	}
	return &pageDumps{directory: dir}, nil
}

func (d *pageDumps) write(doc *dom.Document) error {
	contents, err := doc.Html()
	if err != nil {
		return err
	}

	d.mutex.Lock()
	d.count++
	name := fmt.Sprintf("%03d.html", d.count)
	d.mutex.Unlock()

	return os.WriteFile(filepath.Join(d.directory, name), []byte(contents), 0600)
}
