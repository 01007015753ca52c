package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// promptInterface asks for an interface name on out and reads one line from in.
func promptInterface(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter network interface (e.g. eth0, wlan0, enp3s0): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read interface: %w", err)
	}
	name := strings.TrimSpace(line)
	if name == "" {
		return "", errors.New("no interface entered")
	}
	return name, nil
}
