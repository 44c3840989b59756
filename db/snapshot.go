package db

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/op"
	"github.com/nickyhof/tablekv/ps"
)

// Load reads "<url>/<table>_tbl.txt" for every table and stores each line.
// Tables without a snapshot are skipped. Loaded rows overwrite existing ones
// regardless of version. It returns the number of rows loaded.
func (engine *Engine) Load(ctx context.Context, url string, cfg *S3Config) (int, error) {
	loaded := 0
	for _, tableOp := range engine.database.Tables() {
		path := joinURL(url, ps.TableFile(tableOp.Table.Name))

		reader, err := openRemoteReader(ctx, path, cfg)
		if errors.Is(err, os.ErrNotExist) {
			slog.DebugContext(ctx, "no snapshot for table", "table", tableOp.Table.Name, "path", path)
			continue
		}
		if err != nil {
			return loaded, fmt.Errorf("open snapshot %s: %w", path, err)
		}

		n, err := loadTable(tableOp, reader)
		reader.Close()
		loaded += n
		if err != nil {
			return loaded, fmt.Errorf("load snapshot %s: %w", path, err)
		}
		slog.InfoContext(ctx, "loaded snapshot", "table", tableOp.Table.Name, "rows", n)
	}
	return loaded, nil
}

func loadTable(tableOp *op.TableOp, reader io.Reader) (int, error) {
	scanner := bufio.NewScanner(reader)
	n := 0
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if text == "" {
			continue
		}
		key, value, ok := strings.Cut(text, ":")
		if !ok {
			return n, fmt.Errorf("line %d: missing key separator", line)
		}
		if err := tableOp.PutString(key, value, 0); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	return n, scanner.Err()
}

// Dump writes every table to "<url>/<table>_tbl.txt" in the file-store
// format. It returns the number of rows written.
func (engine *Engine) Dump(ctx context.Context, url string, cfg *S3Config) (int, error) {
	dumped := 0
	for _, tableOp := range engine.database.Tables() {
		path := joinURL(url, ps.TableFile(tableOp.Table.Name))

		writer, err := openRemoteWriter(ctx, path, cfg)
		if err != nil {
			return dumped, fmt.Errorf("open snapshot %s: %w", path, err)
		}

		n, err := dumpTable(tableOp, writer)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return dumped, fmt.Errorf("dump snapshot %s: %w", path, err)
		}
		dumped += n
		slog.InfoContext(ctx, "dumped snapshot", "table", tableOp.Table.Name, "rows", n)
	}
	return dumped, nil
}

func dumpTable(tableOp *op.TableOp, writer io.Writer) (int, error) {
	buffered := bufio.NewWriter(writer)
	n := 0
	var writeErr error
	err := tableOp.Scan(func(rec ps.Record) bool {
		_, writeErr = fmt.Fprintf(buffered, "%s:%s\n", rec.Key, codec.Encode(rec.Value, tableOp.Table))
		if writeErr != nil {
			return false
		}
		n++
		return true
	})
	if err != nil {
		return n, err
	}
	if writeErr != nil {
		return n, writeErr
	}
	return n, buffered.Flush()
}
