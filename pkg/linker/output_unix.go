//go:build unix

package linker

import (
	"os"

	"golang.org/x/sys/unix"
)

const outputMode = 0o777

// createOutput creates an empty placeholder image. The mode is applied with
// fchmod because the umask narrows the mode given to open.
func createOutput(p string) error {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR|os.O_TRUNC, outputMode)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = unix.Fchmod(int(f.Fd()), outputMode); err != nil {
		return err
	}
	return f.Close()
}
