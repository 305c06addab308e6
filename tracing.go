// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package quorum

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/blinklabs-io/quorum/internal/version"
)

func (n *Node) setupTracing() error {
	var exporter sdktrace.SpanExporter
	var err error
	if n.config.tracingStdout {
		exporter, err = stdouttrace.New()
	} else {
		exporter, err = otlptracehttp.New(context.Background())
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", "quorum"),
			attribute.String("service.version", version.GetVersionString()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to build trace resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	n.shutdownFuncs = append(n.shutdownFuncs, tp.Shutdown)
	return nil
}
