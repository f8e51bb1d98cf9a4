package wiki

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"testing"
)

func linksPage(pageID int, cont obj, titles ...string) obj {
	resp := obj{"query": obj{"pages": obj{
		itoa(pageID): obj{"pageid": pageID, "title": "P", "links": titleRecords(titles...)},
	}}}
	if cont != nil {
		resp["continue"] = cont
	}
	return resp
}

func linksQuery() *continuedQuery {
	params := url.Values{}
	params.Set("prop", "links")
	params.Set("pllimit", "max")
	return newContinuedQuery(params, "pages").forPage(7)
}

func TestNewContinuedQuery_Shape(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		key    string
		want   resultShape
	}{
		{"generator", url.Values{"generator": {"images"}, "prop": {"imageinfo"}}, "pages", shapeGenerator},
		{"list", url.Values{"list": {"backlinks"}}, "backlinks", shapeList},
		{"per page", url.Values{"prop": {"links"}}, "pages", shapePerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newContinuedQuery(tt.params, tt.key)
			if q.shape != tt.want {
				t.Errorf("shape = %v, want %v", q.shape, tt.want)
			}
		})
	}
}

func TestPaginate_ConcatenatesUntilNoCursor(t *testing.T) {
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		switch p.Get("plcontinue") {
		case "":
			return linksPage(7, obj{"plcontinue": "7|0|C", "continue": "||"}, "A", "B"), nil
		case "7|0|C":
			return linksPage(7, obj{"plcontinue": "7|0|E", "continue": "||"}, "C", "D"), nil
		case "7|0|E":
			return linksPage(7, nil, "E"), nil
		}
		return nil, errUnexpected
	})

	got, err := collect(client.paginate(context.Background(), linksQuery()), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	want := []string{"A", "B", "C", "D", "E"}
	if !slices.Equal(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
	if len(ft.calls) != 3 {
		t.Errorf("requests = %d, want 3", len(ft.calls))
	}
	if ft.calls[1].Get("continue") != "||" {
		t.Errorf("cursor not merged into second request: %v", ft.calls[1])
	}
	for _, c := range ft.calls {
		if c.Get("pageids") != "7" || c.Get("format") != "json" || c.Get("action") != "query" {
			t.Errorf("request missing base parameters: %v", c)
		}
	}
}

func TestPaginate_SinglePage(t *testing.T) {
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		return linksPage(7, nil, "A", "B"), nil
	})

	got, err := collect(client.paginate(context.Background(), linksQuery()), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("items = %v", got)
	}
	if len(ft.calls) != 1 {
		t.Errorf("requests = %d, want 1", len(ft.calls))
	}
}

func TestPaginate_UnchangedCursorStops(t *testing.T) {
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		return linksPage(7, obj{"plcontinue": "same"}, "A"), nil
	})

	got, err := collect(client.paginate(context.Background(), linksQuery()), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if len(ft.calls) != 2 {
		t.Errorf("requests = %d, want 2", len(ft.calls))
	}
	if !slices.Equal(got, []string{"A", "A"}) {
		t.Errorf("items = %v", got)
	}
}

func TestPaginate_GeneratorYieldsMapValues(t *testing.T) {
	client, _ := newTestClient(t, func(p url.Values) (interface{}, error) {
		return obj{"query": obj{"pages": obj{
			"-2": obj{"title": "File:B.png"},
			"-1": obj{"title": "File:A.png"},
		}}}, nil
	})

	params := url.Values{}
	params.Set("generator", "images")
	q := newContinuedQuery(params, "pages").forPage(7)
	got, err := collect(client.paginate(context.Background(), q), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if !slices.Equal(got, []string{"File:A.png", "File:B.png"}) {
		t.Errorf("items = %v", got)
	}
}

func TestPaginate_ListShape(t *testing.T) {
	client, _ := newTestClient(t, func(p url.Values) (interface{}, error) {
		return obj{"query": obj{"backlinks": titleRecords("X", "Y")}}, nil
	})

	q := newContinuedQuery(url.Values{"list": {"backlinks"}}, "backlinks")
	got, err := collect(client.paginate(context.Background(), q), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if !slices.Equal(got, []string{"X", "Y"}) {
		t.Errorf("items = %v", got)
	}
}

func TestPaginate_MissingPropertyYieldsNothing(t *testing.T) {
	client, _ := newTestClient(t, func(p url.Values) (interface{}, error) {
		return obj{"query": obj{"pages": obj{"7": obj{"pageid": 7, "title": "P"}}}}, nil
	})

	got, err := collect(client.paginate(context.Background(), linksQuery()), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("items = %#v, want empty slice", got)
	}
}

func TestPaginate_LegacyCursor(t *testing.T) {
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		if p.Get("cmcontinue") == "" {
			return obj{
				"query":          obj{"categorymembers": titleRecords("A")},
				"query-continue": obj{"categorymembers": obj{"cmcontinue": "page|B"}},
			}, nil
		}
		return obj{"query": obj{"categorymembers": titleRecords("B")}}, nil
	})

	q := newContinuedQuery(url.Values{"list": {"categorymembers"}}, "categorymembers").withLegacyContinue()
	got, err := collect(client.paginate(context.Background(), q), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("items = %v", got)
	}
	if ft.calls[1].Get("cmcontinue") != "page|B" {
		t.Errorf("legacy cursor not sent: %v", ft.calls[1])
	}
}

func TestPaginate_LimitLowersRequestSize(t *testing.T) {
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		next := "x"
		if p.Get("cmcontinue") == "x" {
			next = "y"
		}
		return obj{
			"query":    obj{"categorymembers": titleRecords("A", "B")},
			"continue": obj{"cmcontinue": next},
		}, nil
	})

	q := newContinuedQuery(url.Values{"list": {"categorymembers"}}, "categorymembers").withLimit(3, "cmlimit")
	got, err := collect(client.paginate(context.Background(), q), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("items = %v, want 3", got)
	}
	if len(ft.calls) != 2 {
		t.Fatalf("requests = %d, want 2", len(ft.calls))
	}
	if ft.calls[0].Get("cmlimit") != "3" || ft.calls[1].Get("cmlimit") != "1" {
		t.Errorf("cmlimit = %q then %q, want 3 then 1", ft.calls[0].Get("cmlimit"), ft.calls[1].Get("cmlimit"))
	}
}

func TestPaginate_ErrorStopsIteration(t *testing.T) {
	boom := errors.New("boom")
	client, _ := newTestClient(t, func(p url.Values) (interface{}, error) {
		if p.Get("plcontinue") == "" {
			return linksPage(7, obj{"plcontinue": "next"}, "A"), nil
		}
		return nil, boom
	})

	got, err := collect(client.paginate(context.Background(), linksQuery()), titleOf)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if got != nil {
		t.Errorf("partial results returned: %v", got)
	}
}

func TestPaginate_EarlyBreakStopsRequests(t *testing.T) {
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		return linksPage(7, obj{"plcontinue": p.Get("plcontinue") + "x"}, "A", "B"), nil
	})

	for range client.paginate(context.Background(), linksQuery()) {
		break
	}
	if len(ft.calls) != 1 {
		t.Errorf("requests = %d, want 1", len(ft.calls))
	}
}

func TestPaginate_FreshRequestsPerCall(t *testing.T) {
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		return linksPage(7, nil, "A"), nil
	})

	seq := client.paginate(context.Background(), linksQuery())
	for range seq {
	}
	for range seq {
	}
	if len(ft.calls) != 2 {
		t.Errorf("requests = %d, want 2", len(ft.calls))
	}
}

func TestPaginate_OnlyNewestCursorIsSent(t *testing.T) {
	imagePage := func(id int, title string, cont obj) obj {
		resp := obj{"query": obj{"pages": obj{itoa(id): obj{"pageid": id, "title": title}}}}
		if cont != nil {
			resp["continue"] = cont
		}
		return resp
	}
	client, ft := newTestClient(t, func(p url.Values) (interface{}, error) {
		switch p.Get("continue") {
		case "":
			return imagePage(1, "File:A.jpg", obj{"iicontinue": "A|1", "continue": "gimcontinue||"}), nil
		case "gimcontinue||":
			return imagePage(2, "File:B.jpg", obj{"gimcontinue": "C", "continue": "-||"}), nil
		case "-||":
			return imagePage(3, "File:C.jpg", nil), nil
		}
		return nil, errUnexpected
	})

	params := url.Values{}
	params.Set("generator", "images")
	params.Set("prop", "imageinfo")
	got, err := collect(client.paginate(context.Background(), newContinuedQuery(params, "pages")), titleOf)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if !slices.Equal(got, []string{"File:A.jpg", "File:B.jpg", "File:C.jpg"}) {
		t.Errorf("items = %v", got)
	}
	if len(ft.calls) != 3 {
		t.Fatalf("requests = %d, want 3", len(ft.calls))
	}

	if got := ft.calls[1].Get("iicontinue"); got != "A|1" {
		t.Errorf("second request iicontinue = %q, want A|1", got)
	}
	third := ft.calls[2]
	if third.Has("iicontinue") {
		t.Errorf("third request still sends iicontinue=%q from an older cursor", third.Get("iicontinue"))
	}
	if third.Get("gimcontinue") != "C" || third.Get("continue") != "-||" {
		t.Errorf("third request cursor = %v", third)
	}
	if third.Get("generator") != "images" || third.Get("prop") != "imageinfo" {
		t.Errorf("third request lost initial parameters: %v", third)
	}
}
