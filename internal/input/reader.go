package input

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Reader handles reading target URLs from files or stdin.
type Reader struct{}

// NewReader creates a new Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadURLsFromFile reads targets line by line from a file, skipping blank
// lines and # comments.
func (r *Reader) ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readLines(file)
}

// ReadURLsFromStdin reads targets line by line from standard input.
func (r *Reader) ReadURLsFromStdin() ([]string, error) {
	return readLines(os.Stdin)
}

func readLines(src io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
