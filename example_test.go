package cone_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cone387/cone"
	"github.com/cone387/cone/pkg/registry"
	"github.com/cone387/cone/pkg/singleton"
)

// ExampleParseCurl shows how a curl command line maps onto a request.
func ExampleParseCurl() {
	req, err := cone.ParseCurl(`curl -X PUT -H 'Cookie: a=1' http://example.com -d 'x=1'`)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(req.Method, req.URL)
	fmt.Println(req.Cookies["a"], req.Body)
	// Output:
	// PUT http://example.com
	// 1 x=1
}

// ExampleNewRegistrySet registers one class per generated key and finds more
// in a manifest directory.
func ExampleNewRegistrySet() {
	tmpDir, err := os.MkdirTemp("", "cone-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	manifest := "class: http\nkeys: {kind: http}\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "http.yaml"), []byte(manifest), 0644); err != nil {
		log.Fatal(err)
	}

	classes := registry.Catalog{}.Add(registry.Record("http"))
	plugins, err := cone.NewRegistrySet().Manager(
		registry.WithRoot(tmpDir),
		registry.WithPaths("."),
		registry.WithUniqueKeys("kind"),
		registry.WithLoader(registry.ManifestLoader{Classes: classes}),
	)
	if err != nil {
		log.Fatal(err)
	}

	if err := plugins.RegisterGenerated(registry.Record("echo"), registry.Values("a", "b")); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	keys, err := plugins.Keys(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(keys)

	inst, err := plugins.New(ctx, registry.Params{"kind": "b", "size": 3})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(inst)
	// Output:
	// [a b http]
	// map[class:echo kind:b size:3]
}

type settings struct {
	Region string
}

// ExampleNewSingletonStore shows that every lookup of a type returns the same instance.
func ExampleNewSingletonStore() {
	store := cone.NewSingletonStore()

	a := singleton.Of[settings](store)
	a.Region = "eu"
	b := singleton.Of[settings](store)

	fmt.Println(a == b, b.Region)
	// Output:
	// true eu
}
