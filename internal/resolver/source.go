package resolver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"rindex/internal/registry"
)

// Source looks up the exports of an installed R package.
type Source interface {
	Exports(ctx context.Context, pkg string) (registry.Completions, error)
}

// exportsScript prints one line per export: name, type code and the formal
// argument names separated by \x1f, all tab separated. Type codes match
// registry.ExportType.
const exportsScript = `
pkg <- commandArgs(trailingOnly = TRUE)[[1L]]
ns <- suppressPackageStartupMessages(loadNamespace(pkg))
emit <- function(name, type, formals = character()) {
  cat(name, type, paste(formals, collapse = "\x1f"), sep = "\t")
  cat("\n")
}
for (name in sort(getNamespaceExports(ns))) {
  if (startsWith(name, ".__C__")) {
    emit(substring(name, 7L), 4L)
    next
  }
  obj <- tryCatch(getExportedValue(ns, name), error = function(e) NULL)
  if (is.function(obj)) {
    f <- tryCatch(names(formals(args(obj))), error = function(e) NULL)
    generic <- isTRUE(tryCatch(methods::isGeneric(name, where = ns), error = function(e) FALSE))
    emit(name, if (generic) 3L else 1L, f)
  } else if (is.environment(obj)) {
    emit(name, 5L)
  } else {
    emit(name, 2L)
  }
}
lazy <- tryCatch(ls(.getNamespaceInfo(ns, "lazydata")), error = function(e) character())
for (name in sort(lazy)) emit(name, 2L)
`

// RscriptSource resolves exports by running Rscript.
type RscriptSource struct {
	// Binary is the Rscript executable. Defaults to "Rscript".
	Binary string
}

// RscriptAvailable reports whether binary (or "Rscript") is on PATH.
func RscriptAvailable(binary string) bool {
	if binary == "" {
		binary = "Rscript"
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

// Exports runs the export listing script for pkg.
func (s RscriptSource) Exports(ctx context.Context, pkg string) (registry.Completions, error) {
	binary := s.Binary
	if binary == "" {
		binary = "Rscript"
	}

	cmd := exec.CommandContext(ctx, binary, "--vanilla", "-e", exportsScript, pkg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return registry.Completions{}, fmt.Errorf("rscript %s: %w: %s", pkg, err, msg)
		}
		return registry.Completions{}, fmt.Errorf("rscript %s: %w", pkg, err)
	}

	return parseExports(pkg, &stdout)
}

// parseExports reads the script output. Blank and malformed lines are
// skipped.
func parseExports(pkg string, r io.Reader) (registry.Completions, error) {
	c := registry.Completions{
		Package:   pkg,
		Functions: make(map[string][]string),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 3 || fields[0] == "" {
			continue
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		typ := registry.ExportType(code)

		c.Exports = append(c.Exports, fields[0])
		c.Types = append(c.Types, typ)
		if typ == registry.ExportFunction || typ == registry.ExportS4Generic {
			var formals []string
			if fields[2] != "" {
				formals = strings.Split(fields[2], "\x1f")
			}
			c.Functions[fields[0]] = formals
		}
	}
	if err := scanner.Err(); err != nil {
		return registry.Completions{}, fmt.Errorf("reading exports of %s: %w", pkg, err)
	}
	return c, nil
}
