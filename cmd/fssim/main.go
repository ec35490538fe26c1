// fssim runs a command script against the flat file-system simulator.
//
// Each line of the script is one command:
//
//	M disk      mount an image
//	C name n    create a file of n blocks, or a directory if n is 0
//	D name      delete
//	R name b    read block b of name into the buffer
//	W name b    write the buffer to block b of name
//	B text      set the buffer
//	L           list the working directory
//	E name n    resize name to n blocks
//	O           defragment
//	Y name      change directory
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fs"
	"github.com/mit-pdos/go-flatfs/util"
)

func usage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s [-debug n] [-mkdisk path] script\n", prog)
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	flag.Usage = usage
	debug := flag.Uint64("debug", 0, "debug print level")
	mkdisk := flag.String("mkdisk", "", "create an empty disk image at `path` first")
	flag.Parse()
	util.Debug = *debug

	if *mkdisk != "" {
		if err := disk.Create(*mkdisk); err != nil {
			log.Fatalf("mkdisk: %v", err)
		}
	}
	if flag.NArg() == 0 {
		if *mkdisk != "" {
			return
		}
		usage()
		os.Exit(2)
	}

	script := flag.Arg(0)
	f, err := os.Open(script)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer f.Close()

	if err := run(fs.MkFileSys(), script, f, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("%s: %v", script, err)
	}
}

// run executes each line of r. Malformed lines and failed commands are
// reported on stderr and the script continues; only a read error on r
// stops it.
func run(fsys *fs.FileSys, script string, r io.Reader, stdout io.Writer, stderr io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		err := exec(fsys, text, stdout)
		if errors.Is(err, errSyntax) {
			fmt.Fprintf(stderr, "Command Error: %s, %d\n", script, line)
		} else if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
	return sc.Err()
}

var errSyntax = errors.New("syntax error")

func parseCount(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errSyntax
	}
	return n, nil
}

func exec(fsys *fs.FileSys, text string, stdout io.Writer) error {
	// The buffer text is taken verbatim, spaces included.
	if strings.HasPrefix(text, "B ") {
		data := text[2:]
		if uint64(len(data)) > common.BlockSize {
			return fmt.Errorf("buffer of %d bytes exceeds %d", len(data),
				common.BlockSize)
		}
		fsys.SetBuffer([]byte(data))
		return nil
	}

	// L and O ignore anything after the command letter.
	args := strings.Fields(text)
	cmd, args := args[0], args[1:]
	switch {
	case cmd == "M" && len(args) == 1:
		return fsys.Mount(args[0])
	case cmd == "C" && len(args) == 2:
		n, err := parseCount(args[1])
		if err != nil || n > common.MAXFILESZ {
			return errSyntax
		}
		return fsys.Create(args[0], n)
	case cmd == "D" && len(args) == 1:
		return fsys.Delete(args[0])
	case cmd == "R" && len(args) == 2:
		b, err := parseCount(args[1])
		if err != nil {
			return err
		}
		_, err = fsys.ReadBlock(args[0], b)
		return err
	case cmd == "W" && len(args) == 2:
		b, err := parseCount(args[1])
		if err != nil {
			return err
		}
		return fsys.WriteBlock(args[0], b)
	case cmd == "L":
		l, err := fsys.List()
		if err != nil {
			return err
		}
		_, err = l.WriteTo(stdout)
		return err
	case cmd == "E" && len(args) == 2:
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}
		return fsys.Resize(args[0], n)
	case cmd == "O":
		return fsys.Defrag()
	case cmd == "Y" && len(args) == 1:
		return fsys.Chdir(args[0])
	}
	return errSyntax
}
