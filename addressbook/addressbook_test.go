package addressbook

import "testing"

func ipv4(a, b, c, d byte) [16]byte {
	var ip [16]byte
	ip[12], ip[13], ip[14], ip[15] = a, b, c, d
	return ip
}

func TestAddStartsInNewBucket(t *testing.T) {
	book := New()
	book.Add(ipv4(10, 0, 0, 1), 8001)

	if len(book.Tried()) != 0 {
		t.Fatalf("freshly added address should not be in the tried bucket")
	}
	if len(book.New()) != 1 {
		t.Fatalf("expected 1 new address, got %d", len(book.New()))
	}
}

func TestGoodPromotesToTried(t *testing.T) {
	book := New()
	book.Add(ipv4(10, 0, 0, 1), 8001)
	book.Good(ipv4(10, 0, 0, 1), 8001)

	if len(book.Tried()) != 1 {
		t.Fatalf("expected 1 tried address, got %d", len(book.Tried()))
	}
	if len(book.New()) != 0 {
		t.Fatalf("expected 0 new addresses after promotion, got %d", len(book.New()))
	}
}

func TestFailedIncrementsFailureCount(t *testing.T) {
	book := New()
	book.Add(ipv4(10, 0, 0, 1), 8001)
	book.Failed(ipv4(10, 0, 0, 1), 8001)
	book.Failed(ipv4(10, 0, 0, 1), 8001)

	addrs := book.New()
	if len(addrs) != 1 || addrs[0].FailureCount != 2 {
		t.Fatalf("expected FailureCount=2, got %+v", addrs)
	}
}

func TestGoodAfterFailureResetsFailureCount(t *testing.T) {
	book := New()
	book.Add(ipv4(10, 0, 0, 1), 8001)
	book.Failed(ipv4(10, 0, 0, 1), 8001)
	book.Good(ipv4(10, 0, 0, 1), 8001)

	tried := book.Tried()
	if len(tried) != 1 || tried[0].FailureCount != 0 {
		t.Fatalf("expected FailureCount reset to 0, got %+v", tried)
	}
}

func TestRemoveDropsAddress(t *testing.T) {
	book := New()
	book.Add(ipv4(10, 0, 0, 1), 8001)
	book.Remove(ipv4(10, 0, 0, 1), 8001)

	if book.Len() != 0 {
		t.Fatalf("expected empty book after remove, got %d", book.Len())
	}
}

func TestAddIsIdempotent(t *testing.T) {
	book := New()
	book.Add(ipv4(10, 0, 0, 1), 8001)
	book.Good(ipv4(10, 0, 0, 1), 8001)
	book.Add(ipv4(10, 0, 0, 1), 8001) // re-add must not clear Tried

	if len(book.Tried()) != 1 {
		t.Fatalf("re-adding a tried address should not demote it")
	}
}
