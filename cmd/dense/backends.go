package main

import (
	"fmt"
	"io"

	"github.com/born-ml/dense/backend/cpu"
	"github.com/born-ml/dense/backend/webgpu"
	"github.com/born-ml/dense/nn"
)

func runBackends(w io.Writer) error {
	fmt.Fprintf(w, "%-28s %-10s %s\n", "Backend", "Available", "Strategy")

	c := cpu.New()
	fmt.Fprintf(w, "%-28s %-10v %s\n", c.Name(), c.Available(), nn.CPUBatch)

	gpu, err := webgpu.New()
	if err != nil {
		fmt.Fprintf(w, "%-28s %-10v %s (%v)\n", "WebGPU", false, nn.CPUSingle, err)
		return nil
	}
	defer gpu.Release()

	for _, class := range []nn.DeviceClass{nn.Desktop, nn.Constrained} {
		fmt.Fprintf(w, "%-28s %-10v %s (%s)\n", gpu.Name(), gpu.Available(), nn.SelectStrategy(gpu.Available(), class), class)
	}
	return nil
}
