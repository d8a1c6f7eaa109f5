package emotify

import (
	"go/build"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/teslashibe/go-emotify"

// The overlay loop and everything it imports from this module must build
// without OpenCV or any other cgo dependency, and without the dashboard.
func TestCoreBuildsWithoutCgo(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	queue := []string{modulePath + "/pkg/emotify"}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if seen[path] {
			continue
		}
		seen[path] = true

		dir := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(path, modulePath)))
		pkg, err := build.ImportDir(dir, 0)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if len(pkg.CgoFiles) > 0 {
			t.Errorf("%s has cgo files %v", path, pkg.CgoFiles)
		}
		for _, imp := range pkg.Imports {
			switch {
			case imp == "C", strings.HasPrefix(imp, "gocv.io/"), strings.Contains(imp, "hraban/opus"),
				strings.HasPrefix(imp, "github.com/gofiber/"), imp == modulePath+"/pkg/web":
				t.Errorf("%s imports %s", path, imp)
			case strings.HasPrefix(imp, modulePath+"/"):
				queue = append(queue, imp)
			}
		}
	}

	for _, want := range []string{"/pkg/body", "/pkg/overlay", "/pkg/appstate", "/pkg/detection"} {
		if !seen[modulePath+want] {
			t.Errorf("walk did not reach %s", want)
		}
	}
}
