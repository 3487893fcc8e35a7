package repository

import "os"

func hostname() (string, error) {
	return os.Hostname()
}

func processID() int {
	return os.Getpid()
}
