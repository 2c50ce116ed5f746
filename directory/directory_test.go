package directory_test

import (
    "errors"
    "io/ioutil"
    "os"
    "path/filepath"

    . "github.com/PelionIoT/historiandb/directory"

    . "github.com/onsi/ginkgo"
    . "github.com/onsi/gomega"
)

type flakyDirectory struct {
    StaticDirectory
    failing bool
}

var EDown = errors.New("directory down")

func (flaky *flakyDirectory) ReadServices() ([]string, error) {
    if flaky.failing {
        return nil, EDown
    }

    return flaky.StaticDirectory.ReadServices()
}

func (flaky *flakyDirectory) NearestReadService() (string, error) {
    if flaky.failing {
        return "", EDown
    }

    return flaky.StaticDirectory.NearestReadService()
}

func (flaky *flakyDirectory) IsValidReadService(serviceName string) bool {
    if flaky.failing {
        return false
    }

    return flaky.StaticDirectory.IsValidReadService(serviceName)
}

var _ = Describe("Directory adapters", func() {
    var workDir string

    BeforeEach(func() {
        var err error

        workDir, err = ioutil.TempDir("", "historiandb-directory-")

        Expect(err).Should(BeNil())
    })

    AfterEach(func() {
        os.RemoveAll(workDir)
    })

    Describe("StaticDirectory", func() {
        It("Should load the service lists from a YAML file", func() {
            file := filepath.Join(workDir, "services.yaml")

            Expect(ioutil.WriteFile(file, []byte(`
readServices:
  - east
  - west
writeServices:
  - east
shadowServices:
  - staging
nearestReadService: east
`), 0644)).Should(BeNil())

            staticDirectory, err := NewStaticDirectoryFromFile(file)

            Expect(err).Should(BeNil())

            readServices, err := staticDirectory.ReadServices()

            Expect(err).Should(BeNil())
            Expect(readServices).Should(Equal([]string{ "east", "west" }))

            writeServices, err := staticDirectory.WriteServices()

            Expect(err).Should(BeNil())
            Expect(writeServices).Should(Equal([]string{ "east" }))

            shadowServices, err := staticDirectory.ShadowServices()

            Expect(err).Should(BeNil())
            Expect(shadowServices).Should(Equal([]string{ "staging" }))

            Expect(staticDirectory.IsValidReadService("west")).Should(BeTrue())
            Expect(staticDirectory.IsValidReadService("staging")).Should(BeFalse())

            nearest, err := staticDirectory.NearestReadService()

            Expect(err).Should(BeNil())
            Expect(nearest).Should(Equal("east"))
        })

        It("Should fall back to the first read service as nearest", func() {
            staticDirectory := &StaticDirectory{ Read: []string{ "west", "east" } }

            nearest, err := staticDirectory.NearestReadService()

            Expect(err).Should(BeNil())
            Expect(nearest).Should(Equal("west"))
        })

        It("Should report an error for nearest with no read services at all", func() {
            staticDirectory := &StaticDirectory{ }

            _, err := staticDirectory.NearestReadService()

            Expect(err).ShouldNot(BeNil())
        })
    })

    Describe("CachedDirectory", func() {
        It("Should serve the last good answer when the inner directory fails", func() {
            flaky := &flakyDirectory{
                StaticDirectory: StaticDirectory{
                    Read: []string{ "east", "west" },
                    Nearest: "east",
                },
            }

            cachedDirectory, err := NewCachedDirectory(flaky, filepath.Join(workDir, "cache"))

            Expect(err).Should(BeNil())

            defer cachedDirectory.Close()

            readServices, err := cachedDirectory.ReadServices()

            Expect(err).Should(BeNil())
            Expect(readServices).Should(Equal([]string{ "east", "west" }))

            nearest, err := cachedDirectory.NearestReadService()

            Expect(err).Should(BeNil())
            Expect(nearest).Should(Equal("east"))

            flaky.failing = true

            readServices, err = cachedDirectory.ReadServices()

            Expect(err).Should(BeNil())
            Expect(readServices).Should(Equal([]string{ "east", "west" }))

            nearest, err = cachedDirectory.NearestReadService()

            Expect(err).Should(BeNil())
            Expect(nearest).Should(Equal("east"))

            Expect(cachedDirectory.IsValidReadService("west")).Should(BeTrue())
        })

        It("Should propagate the failure when there is nothing cached yet", func() {
            flaky := &flakyDirectory{ failing: true }

            cachedDirectory, err := NewCachedDirectory(flaky, filepath.Join(workDir, "cache"))

            Expect(err).Should(BeNil())

            defer cachedDirectory.Close()

            _, err = cachedDirectory.ReadServices()

            Expect(err).Should(Equal(EDown))
        })
    })
})
