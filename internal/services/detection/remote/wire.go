// Package remote exposes a detection model over gRPC and consumes one.
//
// The service is described by hand with protobuf well-known types so no
// generated code is needed:
//
//	service seawatch.detection.v1.Detector {
//	  rpc Detect(google.protobuf.BytesValue) returns (google.protobuf.Struct);
//	}
//
// The request carries a JPEG frame. The response holds a "detections" list of
// {class, score, bbox: [x, y, width, height]} in pixels of the sent frame.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"seawatch-worker-go/internal/models"
)

const (
	ServiceName  = "seawatch.detection.v1.Detector"
	detectMethod = "/" + ServiceName + "/Detect"

	frameQuality = 90
)

// DetectorServer is the server API of the Detector service.
type DetectorServer interface {
	Detect(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
}

var detectorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DetectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Detect",
			Handler:    detectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "seawatch/detection/v1/detector.proto",
}

// RegisterDetectorServer registers srv on s.
func RegisterDetectorServer(s grpc.ServiceRegistrar, srv DetectorServer) {
	s.RegisterService(&detectorServiceDesc, srv)
}

func detectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DetectorServer).Detect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: detectMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DetectorServer).Detect(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func encodeFrame(frame *models.Frame) (*wrapperspb.BytesValue, error) {
	img, err := frame.ToImage()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: frameQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func decodeFrame(in *wrapperspb.BytesValue) (*models.Frame, error) {
	if len(in.GetValue()) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	img, _, err := image.Decode(bytes.NewReader(in.GetValue()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return models.FrameFromImage(img), nil
}

func detectionsToStruct(dets []models.Detection) (*structpb.Struct, error) {
	list := make([]interface{}, 0, len(dets))
	for _, d := range dets {
		list = append(list, map[string]interface{}{
			"class": d.Class,
			"score": d.Score,
			"bbox":  []interface{}{d.BBox.X, d.BBox.Y, d.BBox.Width, d.BBox.Height},
		})
	}
	return structpb.NewStruct(map[string]interface{}{"detections": list})
}

func detectionsFromStruct(s *structpb.Struct) ([]models.Detection, error) {
	field, ok := s.GetFields()["detections"]
	if !ok {
		return nil, fmt.Errorf("response has no detections field")
	}
	values := field.GetListValue().GetValues()
	dets := make([]models.Detection, 0, len(values))
	for i, v := range values {
		fields := v.GetStructValue().GetFields()
		bbox := fields["bbox"].GetListValue().GetValues()
		if len(bbox) != 4 {
			return nil, fmt.Errorf("detection %d: bbox needs 4 values, got %d", i, len(bbox))
		}
		dets = append(dets, models.Detection{
			Class: fields["class"].GetStringValue(),
			Score: fields["score"].GetNumberValue(),
			BBox: models.BBox{
				X:      bbox[0].GetNumberValue(),
				Y:      bbox[1].GetNumberValue(),
				Width:  bbox[2].GetNumberValue(),
				Height: bbox[3].GetNumberValue(),
			},
		})
	}
	return dets, nil
}
