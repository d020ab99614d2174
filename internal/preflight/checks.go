package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"romshelf/internal/archive"
	"romshelf/internal/catalog"
	"romshelf/internal/client"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCompression verifies the configured archive compression is supported.
func CheckCompression(name string) Result {
	const check = "Archive compression"
	if _, err := archive.ParseMethod(name); err != nil {
		return Result{Name: check, Detail: err.Error()}
	}
	if name == "" {
		name = "deflate"
	}
	return Result{Name: check, Passed: true, Detail: name}
}

// CheckCatalog opens the catalog database and counts its platforms.
func CheckCatalog(ctx context.Context, dbPath string) Result {
	const name = "Catalog database"
	store, err := catalog.OpenPath(dbPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	defer store.Close()

	platforms, err := store.ListPlatforms(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d platforms)", dbPath, len(platforms))}
}

// CheckAPI verifies that a romshelfd instance answers its health endpoint.
func CheckAPI(ctx context.Context, baseURL string) Result {
	const name = "romshelfd API"

	c, err := client.New(baseURL)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(baseURL, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", baseURL)}
}

func summarizeAPIError(baseURL string, err error) string {
	var opErr *net.OpError
	switch {
	case errors.Is(err, unix.ECONNREFUSED):
		return fmt.Sprintf("%s (not running)", baseURL)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s (timed out)", baseURL)
	case errors.As(err, &opErr):
		return fmt.Sprintf("%s (network error: %v)", baseURL, opErr.Err)
	default:
		return fmt.Sprintf("%s (%v)", baseURL, err)
	}
}
