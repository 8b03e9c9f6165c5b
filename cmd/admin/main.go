package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "ticks":
			ticksCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin db|state|ticks [flags]")
	os.Exit(2)
}

type tickFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// ticksCmd lists the hourly tick log files, newest last.
func ticksCmd(args []string) {
	fs := flag.NewFlagSet("ticks", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	asJSON := fs.Bool("json", false, "print one JSON object per file")
	_ = fs.Parse(args)

	files, err := listTickFiles(filepath.Join(*dataDir, "ticks"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	var total int64
	for _, f := range files {
		total += f.Size
		if *asJSON {
			printJSON(f)
			continue
		}
		fmt.Printf("%-40s %10s  %s\n", f.Name, humanize.Bytes(uint64(f.Size)), f.Modified)
	}
	if !*asJSON {
		fmt.Printf("%d files, %s\n", len(files), humanize.Bytes(uint64(total)))
	}
}

func listTickFiles(dir string) ([]tickFile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "ticks-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]tickFile, 0, len(paths))
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		out = append(out, tickFile{Name: filepath.Base(p), Size: st.Size(), Modified: humanize.Time(st.ModTime())})
	}
	return out, nil
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
