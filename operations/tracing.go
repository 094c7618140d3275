package operations

import (
	"context"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type closerFn func(context.Context) error

// initTracer returns the tracer provider jobs report spans to. Unless tracing
// is enabled this is the global provider, which discards spans.
func initTracer(ctx context.Context, conf pkgsetup.TracerConfig) (trace.TracerProvider, closerFn, error) {
	if !conf.Enabled {
		return otel.GetTracerProvider(), func(context.Context) error { return nil }, nil
	}

	creds := credentials.NewTLS(nil)
	if conf.Insecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.DialContext(ctx,
		conf.CollectorEndpoint,
		grpc.WithTransportCredentials(creds),
	)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening gRPC connection to '%s'", conf.CollectorEndpoint)
	}

	client := otlptracegrpc.NewClient(otlptracegrpc.WithGRPCConn(conn))
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		grip.Warning(errors.Wrap(conn.Close(), "closing gRPC connection"))
		return nil, nil, errors.Wrap(err, "initializing otel exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			semconv.ServiceName(pkgsetup.PackageName),
			semconv.ServiceVersion(pkgsetup.ClientVersion),
		)),
	)
	tp.RegisterSpanProcessor(utility.NewAttributeSpanProcessor())
	otel.SetTracerProvider(tp)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		grip.Error(errors.Wrap(err, "otel error"))
	}))

	return tp, func(ctx context.Context) error {
		catcher := grip.NewBasicCatcher()
		catcher.Wrap(tp.Shutdown(ctx), "trace provider shutdown")
		catcher.Wrap(exporter.Shutdown(ctx), "trace exporter shutdown")
		catcher.Wrap(conn.Close(), "closing gRPC connection")
		return catcher.Resolve()
	}, nil
}
