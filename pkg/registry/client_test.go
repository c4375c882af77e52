package registry_test

import (
	"context"
	"net/http"
	"net/url"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/driftwatch/driftwatch/pkg/image"
	"github.com/driftwatch/driftwatch/pkg/registry"
)

const mockDigest = "sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547"

// redirectTransport rewrites every outgoing request to the test server,
// keeping the path and query intact. It lets the client talk to its
// hard-coded registry and token hosts without leaving the test process.
type redirectTransport struct {
	target *url.URL
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host

	return http.DefaultTransport.RoundTrip(req)
}

func newRedirectedClient(server *ghttp.Server) *registry.Client {
	target, err := url.Parse(server.URL())
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	return registry.NewClient(registry.ClientOptions{
		HTTPClient: &http.Client{Transport: redirectTransport{target: target}},
	})
}

var _ = ginkgo.Describe("Client", func() {
	var server *ghttp.Server

	ginkgo.BeforeEach(func() {
		server = ghttp.NewServer()
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.Describe("GetDigest", func() {
		ginkgo.It("extracts the digest from the response header", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/v2/my/app/manifests/v1"),
				ghttp.VerifyHeaderKV("User-Agent", registry.UserAgent),
				ghttp.RespondWith(http.StatusOK, nil, http.Header{
					registry.ContentDigestHeader: []string{mockDigest},
				}),
			))

			client := registry.NewClient(registry.ClientOptions{})
			digest, err := client.GetDigest(
				context.Background(), server.URL()+"/v2/my/app/manifests/v1", "")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(digest).To(gomega.Equal(mockDigest))
		})

		ginkgo.It("sends manifest list and OCI index content types", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyHeaderKV(
					"Accept",
					"application/vnd.docker.distribution.manifest.list.v2+json, "+
						"application/vnd.oci.image.index.v1+json, "+
						"application/vnd.docker.distribution.manifest.v2+json, "+
						"application/vnd.oci.image.manifest.v1+json",
				),
				ghttp.RespondWith(http.StatusOK, nil, http.Header{
					registry.ContentDigestHeader: []string{mockDigest},
				}),
			))

			client := registry.NewClient(registry.ClientOptions{})
			_, err := client.GetDigest(
				context.Background(), server.URL()+"/v2/my/app/manifests/v1", "")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("passes the auth header through verbatim", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyHeaderKV("Authorization", "Bearer token-value"),
				ghttp.RespondWith(http.StatusOK, nil, http.Header{
					registry.ContentDigestHeader: []string{mockDigest},
				}),
			))

			client := registry.NewClient(registry.ClientOptions{})
			_, err := client.GetDigest(
				context.Background(),
				server.URL()+"/v2/my/app/manifests/v1",
				"Bearer token-value")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("fails when the digest header is missing", func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusOK, "{}"),
			)

			client := registry.NewClient(registry.ClientOptions{})
			_, err := client.GetDigest(
				context.Background(), server.URL()+"/v2/my/app/manifests/v1", "")

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(
				gomega.ContainSubstring(registry.ContentDigestHeader))
		})

		ginkgo.It("fails on a non-success status", func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusInternalServerError, nil),
			)

			client := registry.NewClient(registry.ClientOptions{})
			_, err := client.GetDigest(
				context.Background(), server.URL()+"/v2/my/app/manifests/v1", "")

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("GetRemoteDigest", func() {
		ginkgo.When("the reference addresses Docker Hub", func() {
			ginkgo.It("exchanges an anonymous token before fetching the manifest", func() {
				server.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("GET", "/token",
							"service=registry.docker.io&scope=repository:library/nginx:pull"),
						ghttp.RespondWithJSONEncoded(http.StatusOK,
							map[string]string{"token": "hub-token"}),
					),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("GET", "/v2/library/nginx/manifests/latest"),
						ghttp.VerifyHeaderKV("Authorization", "Bearer hub-token"),
						ghttp.RespondWith(http.StatusOK, nil, http.Header{
							registry.ContentDigestHeader: []string{mockDigest},
						}),
					),
				)

				ref, err := image.Parse("nginx")
				gomega.Expect(err).NotTo(gomega.HaveOccurred())

				client := newRedirectedClient(server)
				digest, err := client.GetRemoteDigest(context.Background(), ref, "")

				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(digest).To(gomega.Equal(mockDigest))
				gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(2))
			})

			ginkgo.It("wraps a failed token exchange", func() {
				server.AppendHandlers(
					ghttp.RespondWith(http.StatusServiceUnavailable, nil),
				)

				ref, err := image.Parse("nginx")
				gomega.Expect(err).NotTo(gomega.HaveOccurred())

				client := newRedirectedClient(server)
				_, err = client.GetRemoteDigest(context.Background(), ref, "")

				gomega.Expect(err).To(gomega.MatchError(registry.ErrRegistryFetch))
			})
		})

		ginkgo.When("the reference addresses GHCR", func() {
			ginkgo.It("reports missing authentication on a 401 without a token", func() {
				server.AppendHandlers(
					ghttp.RespondWith(http.StatusUnauthorized, nil),
				)

				ref, err := image.Parse("ghcr.io/org/app:v1")
				gomega.Expect(err).NotTo(gomega.HaveOccurred())

				client := newRedirectedClient(server)
				_, err = client.GetRemoteDigest(context.Background(), ref, "")

				gomega.Expect(err).To(gomega.MatchError(registry.ErrAuthRequired))
			})

			ginkgo.It("sends the supplied token as a bearer credential", func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/v2/org/app/manifests/v1"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer ghcr-token"),
					ghttp.RespondWith(http.StatusOK, nil, http.Header{
						registry.ContentDigestHeader: []string{mockDigest},
					}),
				))

				ref, err := image.Parse("ghcr.io/org/app:v1")
				gomega.Expect(err).NotTo(gomega.HaveOccurred())

				client := newRedirectedClient(server)
				digest, err := client.GetRemoteDigest(
					context.Background(), ref, "ghcr-token")

				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(digest).To(gomega.Equal(mockDigest))
			})

			ginkgo.It("does not treat a 401 with a token as missing authentication", func() {
				server.AppendHandlers(
					ghttp.RespondWith(http.StatusUnauthorized, nil),
				)

				ref, err := image.Parse("ghcr.io/org/app:v1")
				gomega.Expect(err).NotTo(gomega.HaveOccurred())

				client := newRedirectedClient(server)
				_, err = client.GetRemoteDigest(
					context.Background(), ref, "expired-token")

				gomega.Expect(err).To(gomega.MatchError(registry.ErrRegistryFetch))
			})
		})

		ginkgo.When("the reference addresses a generic registry", func() {
			ginkgo.It("fetches anonymously", func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/v2/team/app/manifests/v2"),
					func(_ http.ResponseWriter, r *http.Request) {
						gomega.Expect(r.Header.Get("Authorization")).To(gomega.BeEmpty())
					},
					ghttp.RespondWith(http.StatusOK, nil, http.Header{
						registry.ContentDigestHeader: []string{mockDigest},
					}),
				))

				ref := image.Reference{
					Registry:   server.URL(),
					Repository: "team/app",
					Tag:        "v2",
				}

				client := registry.NewClient(registry.ClientOptions{})
				digest, err := client.GetRemoteDigest(context.Background(), ref, "token-ignored")

				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(digest).To(gomega.Equal(mockDigest))
			})
		})
	})
})
