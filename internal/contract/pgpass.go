package contract

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LookupPgPass resolves a password from a PostgreSQL password file
// (~/.pgpass format: hostname:port:database:username:password, one entry
// per line, '*' matching any value, '#' starting a comment).
func LookupPgPass(path, host, port, database, user string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot read pgpass file: %w", err)
	}
	defer func() { _ = fh.Close() }()

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, ":", 5)
		if len(fields) != 5 {
			continue
		}
		if pgpassMatch(fields[0], host) &&
			pgpassMatch(fields[1], port) &&
			pgpassMatch(fields[2], database) &&
			pgpassMatch(fields[3], user) {
			return fields[4], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read pgpass file: %w", err)
	}
	return "", fmt.Errorf("no pgpass entry for %s@%s:%s/%s in %s", user, host, port, database, path)
}

func pgpassMatch(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
