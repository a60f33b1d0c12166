// Package yolorank runs and compares YOLO object-detection models exported to
// ONNX.
//
// The root package wraps a single model as a Detector. Ranking of evaluated
// models lives in the metrics and rank packages.
//
// # Quick Start
//
//	det, err := yolorank.New("yolo11n.onnx", yolorank.WithConfidence(0.3))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer det.Close()
//
//	res, err := det.Detect(ctx, img)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d oysters in %.1f ms\n", len(res.Detections), res.Speed.TotalMS())
//
// # Thread Safety
//
// Detector is safe for concurrent use. It manages an internal pool of ONNX
// sessions, configurable via WithPoolSize.
//
// # Runtime
//
// The ONNX Runtime shared library must be installed. Set
// ONNXRUNTIME_SHARED_LIBRARY_PATH when it is not on the default search path.
package yolorank
