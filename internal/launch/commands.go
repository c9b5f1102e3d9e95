package launch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadCommandFile returns the commands in path, one per line, in order.
// Blank lines are rejected rather than skipped, as is an empty file.
func ReadCommandFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCommandFileNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	var cmds []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			return nil, &MalformedCommandFileError{
				Path:   path,
				Line:   lineNum,
				Reason: "blank line; remove empty lines first",
			}
		}
		cmds = append(cmds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading command file: %w", err)
	}

	if len(cmds) == 0 {
		return nil, &MalformedCommandFileError{Path: path, Reason: "no commands found"}
	}
	return cmds, nil
}
