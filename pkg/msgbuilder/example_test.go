// Copyright 2024-2026 Aiku AI

package msgbuilder_test

import (
	"fmt"

	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

func ExampleBuilder() {
	b := msgbuilder.New()
	b.Tag("widgets", "")
	b.WriteText(" alice opened issue ")
	b.PrimaryLink("#42", "https://github.com/acme/widgets/issues/42")
	fmt.Fprintf(b, ": %s", msgbuilder.Shorten("Crash when <input> is empty", msgbuilder.ShortBudget))

	msg := b.Finalize()
	fmt.Println(msg.Plain)
	fmt.Println(msg.HTML)
	// Output:
	// [widgets] alice opened issue #42: Crash when <input> is empty ⋅ https://github.com/acme/widgets/issues/42
	// <b>[widgets]</b> alice opened issue <a href="https://github.com/acme/widgets/issues/42">#42</a>: Crash when &lt;input&gt; is empty
}
