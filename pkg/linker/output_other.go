//go:build !unix

package linker

import "os"

const outputMode = 0o777

func createOutput(p string) error {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR|os.O_TRUNC, outputMode)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = os.Chmod(p, outputMode); err != nil {
		return err
	}
	return f.Close()
}
