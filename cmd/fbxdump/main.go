package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/binzume/fbxgraph/fbx"
	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

var (
	keyColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	dataColor = color.New(color.FgGreen).SprintFunc()
	sepColor  = color.New(color.FgHiBlack).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
)

func dumpTokens(tokens []fbx.Token) {
	depth := 0
	for _, t := range tokens {
		indent := strings.Repeat("  ", depth)
		switch t.Type {
		case fbx.TokenKey:
			fmt.Printf("%s%s %s\n", indent, keyColor(t.Text()), sepColor(fmt.Sprintf("@0x%x", t.Offset)))
		case fbx.TokenData:
			fmt.Printf("%s  %s\n", indent, dataColor(t.String()))
		case fbx.TokenOpenBracket:
			fmt.Printf("%s%s\n", indent, sepColor("{"))
			depth++
		case fbx.TokenCloseBracket:
			if depth > 0 {
				depth--
			}
			fmt.Printf("%s%s\n", strings.Repeat("  ", depth), sepColor("}"))
		}
	}
}

func dumpObjects(doc *fbx.Document, spewDump bool) {
	conf := spew.NewDefaultConfig()
	conf.DisableCapacities = true
	conf.DisablePointerAddresses = true
	conf.MaxDepth = 2

	for _, id := range doc.ObjectIDs() {
		lazy := doc.GetObject(id)
		if id == 0 {
			fmt.Printf("%d %s\n", id, keyColor("(root)"))
			continue
		}
		ob, err := lazy.Get(false)
		if err != nil {
			fmt.Printf("%d %s %s\n", id, keyColor(lazy.Element().Key()), warnColor(err.Error()))
			continue
		}
		if ob == nil {
			fmt.Printf("%d %s %s\n", id, keyColor(lazy.Element().Key()), warnColor("(not supported)"))
			continue
		}
		fmt.Printf("%d %s %s %q\n", id, keyColor(lazy.Element().Key()), fbx.KindOf(ob), ob.Name())
		if spewDump {
			fmt.Print(conf.Sdump(ob))
		}
	}
}

func dumpConnections(doc *fbx.Document) {
	for _, id := range doc.ObjectIDs() {
		for _, c := range doc.GetConnectionsBySourceSequenced(id) {
			dest := c.LazyDestinationObject().Element().Key()
			if c.DestinationID() == 0 {
				dest = "(root)"
			}
			line := fmt.Sprintf("#%d %d %s -> %d %s", c.InsertionOrder(), c.SourceID(),
				c.LazySourceObject().Element().Key(), c.DestinationID(), dest)
			if c.PropertyName() != "" {
				line += " " + dataColor(fmt.Sprintf("%q", c.PropertyName()))
			}
			fmt.Println(line)
		}
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.fbx\n", os.Args[0])
		flag.PrintDefaults()
	}
	tokens := flag.Bool("tokens", false, "dump the token stream")
	objects := flag.Bool("objects", false, "dump objects")
	connections := flag.Bool("connections", false, "dump connections")
	strict := flag.Bool("strict", false, "fail on any object error")
	conf := flag.String("config", "", "import settings (yaml)")
	spewDump := flag.Bool("spew", false, "dump object contents (with -objects)")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	settings := fbx.DefaultSettings()
	if *conf != "" {
		var err error
		if settings, err = fbx.LoadSettings(*conf); err != nil {
			log.Fatal(err)
		}
	}
	if *strict {
		settings.StrictMode = true
	}

	buf, err := ioutil.ReadFile(input)
	if err != nil {
		log.Fatal(err)
	}

	if *tokens {
		tt, err := fbx.TokenizeBinary(buf, settings.MaxScopeDepth)
		dumpTokens(tt)
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	doc, err := fbx.ParseBytes(buf, settings)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	ts := doc.CreationTimeStamp()
	fmt.Printf("FBX %d by %q created %04d-%02d-%02d %02d:%02d:%02d\n",
		doc.FBXVersion(), doc.Creator(), ts[0], ts[1], ts[2], ts[3], ts[4], ts[5])
	g := doc.GlobalSettings()
	fmt.Printf("up axis %d (%+d), unit scale %g, %d objects\n",
		g.UpAxis(), g.UpAxisSign(), g.UnitScaleFactor(), len(doc.Objects())-1)

	if *objects {
		dumpObjects(doc, *spewDump)
	}
	if *connections {
		dumpConnections(doc)
	}

	stacks, err := doc.AnimationStacks()
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range stacks {
		fmt.Printf("animation %q: %d layers, %.3fs\n", s.Name(), len(s.Layers()),
			float64(s.LocalStop()-s.LocalStart())/fbx.TimeUnit)
	}
}
