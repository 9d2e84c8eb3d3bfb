package redact

import (
	"reflect"
	"testing"
)

func TestResolve_S1_SelectorSplit(t *testing.T) {
	t.Parallel()

	reqHeaders := map[string]string{"x-api-key": "k"}
	resHeaders := map[string]string{"secret-header": "v"}
	reqBody := `{"age":30}`
	resBody := `{"deep":[0,1,2,{"name":"alex"}]}`

	selectors := "req:header:x-api-key,req:body:age, res:header:secret-header, res:body:deep.3.name"
	req, res := Resolve(reqHeaders, resHeaders, reqBody, resBody, selectors)

	if len(req) != 2 {
		t.Fatalf("req secrets = %v, want 2 entries", req)
	}
	if len(res) != 2 {
		t.Fatalf("res secrets = %v, want 2 entries", res)
	}
}

func TestResolve_S2_SelectorResolution(t *testing.T) {
	t.Parallel()

	reqHeaders := map[string]string{"x-api-key": "my-api-key-value"}
	resHeaders := map[string]string{"secret-header": "my-secret-value"}
	reqBody := `{"name":"John","age":30}`
	resBody := `{"name":"John","age":30,"deep":[0,1,2,{"name":"alex"}]}`

	selectors := "req:header:x-api-key,req:body:age,res:header:secret-header,res:body:deep.3.name"
	req, res := Resolve(reqHeaders, resHeaders, reqBody, resBody, selectors)

	wantReq := []string{"my-api-key-value", "30"}
	wantRes := []string{"my-secret-value", "alex"}

	if !reflect.DeepEqual(req, wantReq) {
		t.Errorf("req = %v, want %v", req, wantReq)
	}
	if !reflect.DeepEqual(res, wantRes) {
		t.Errorf("res = %v, want %v", res, wantRes)
	}
}

func TestResolve_MissingHeaderSkipped(t *testing.T) {
	t.Parallel()

	req, res := Resolve(map[string]string{}, map[string]string{}, "", "", "req:header:missing")
	if req != nil || res != nil {
		t.Errorf("expected no secrets for a missing header, got req=%v res=%v", req, res)
	}
}

func TestResolve_UnknownSideDropped(t *testing.T) {
	t.Parallel()

	req, res := Resolve(map[string]string{"a": "1"}, nil, "", "", "other:header:a")
	if req != nil || res != nil {
		t.Errorf("expected selector with unknown side to be dropped, got req=%v res=%v", req, res)
	}
}

func TestResolve_EmptyBodyLocatorWholeBody(t *testing.T) {
	t.Parallel()

	req, _ := Resolve(nil, nil, "raw non-json body", "", "req:body:")
	if len(req) != 1 || req[0] != "raw non-json body" {
		t.Errorf("req = %v, want whole body", req)
	}
}

func TestResolve_NonJSONBodyWithPathSkipped(t *testing.T) {
	t.Parallel()

	req, _ := Resolve(nil, nil, "not json", "", "req:body:age")
	if req != nil {
		t.Errorf("req = %v, want nil (non-JSON body with non-empty path)", req)
	}
}

func TestResolve_MissingJSONPathSkipped(t *testing.T) {
	t.Parallel()

	req, _ := Resolve(nil, nil, `{"name":"John"}`, "", "req:body:nonexistent")
	if req != nil {
		t.Errorf("req = %v, want nil", req)
	}
}

func TestResolve_ArrayIndexOutOfRangeSkipped(t *testing.T) {
	t.Parallel()

	req, _ := Resolve(nil, nil, `{"items":[1,2]}`, "", "req:body:items.5")
	if req != nil {
		t.Errorf("req = %v, want nil", req)
	}
}

func TestResolve_NumberRendersWithoutQuoteStripping(t *testing.T) {
	t.Parallel()

	// §9 design notes: quote stripping applies even to scalars whose JSON
	// rendering happens to begin/end with a quote, which numbers never do —
	// this documents that a bare number renders without quote stripping.
	req, _ := Resolve(nil, nil, `{"age":30}`, "", "req:body:age")
	if len(req) != 1 || req[0] != "30" {
		t.Errorf("req = %v, want [\"30\"]", req)
	}
}

func TestResolve_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	reqHeaders := map[string]string{"a": "1", "b": "2", "c": "3"}
	req, _ := Resolve(reqHeaders, nil, "", "", "req:header:c,req:header:a,req:header:b")

	want := []string{"3", "1", "2"}
	if !reflect.DeepEqual(req, want) {
		t.Errorf("req = %v, want %v (selector order preserved)", req, want)
	}
}
