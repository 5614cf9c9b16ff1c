// The cadence command runs the accelerometer demo on the periodic kernel,
// with optional tracing and live monitoring.
package main

func main() {
	Execute()
}
